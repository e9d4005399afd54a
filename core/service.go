package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/wildcatlabs/wildcat/protocol"
)

// Gateway is the account/session orchestration core: it owns the live
// session registry, the credential store adapter per account, and the
// ingestion pipeline that turns engine events into canonical records and
// webhook deliveries.
type Gateway struct {
	config            Config
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorFactory      ErrorFactory
	errorMapper       ErrorMapper
	persistenceClient any
	repositoryFactory any
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	engine            protocol.Engine
	accountStore      AccountStore
	credentialDocs    CredentialDocs
	messageStore      MessageStore
	subscriberStore   SubscriberStore
	dispatcher        EventDispatcher
	mediaCapturer     MediaCapturer
	credentialCodec   CredentialCodec
	reconnectPolicy   ReconnectPolicy
	jobEnqueuer       JobEnqueuer
	registry          *AccountRegistry

	runCtx    context.Context
	runCancel context.CancelFunc
}

// GatewayDependencies exposes the resolved collaborators so outer layers
// (transport, commands, jobs) can share them.
type GatewayDependencies struct {
	Logger          Logger
	LoggerProvider  LoggerProvider
	MetricsRecorder MetricsRecorder
	ErrorFactory    ErrorFactory
	ErrorMapper     ErrorMapper
	Engine          protocol.Engine
	AccountStore    AccountStore
	CredentialDocs  CredentialDocs
	MessageStore    MessageStore
	SubscriberStore SubscriberStore
	Dispatcher      EventDispatcher
	MediaCapturer   MediaCapturer
	CredentialCodec CredentialCodec
	ReconnectPolicy ReconnectPolicy
	JobEnqueuer     JobEnqueuer
}

func NewGateway(cfg Config, options ...Option) (*Gateway, error) {
	builder := defaultGatewayBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("gateway", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("gateway"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.credentialCodec == nil {
		builder.credentialCodec = TaggedJSONCredentialCodec{}
	}
	if builder.engine == nil {
		return nil, mapBuildError(builder.errorMapper, fmt.Errorf("core: protocol engine is required"))
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if needsStoreWiring(builder) && builder.repositoryFactory != nil {
		var stores StoreProvider
		if factory, ok := builder.repositoryFactory.(RepositoryStoreFactory); ok {
			built, buildErr := factory.BuildStores(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			stores = built
		} else if provider, ok := builder.repositoryFactory.(StoreProvider); ok {
			stores = provider
		}
		if stores != nil {
			if builder.accountStore == nil {
				builder.accountStore = stores.AccountStore()
			}
			if builder.credentialDocs == nil {
				builder.credentialDocs = stores.CredentialDocs()
			}
			if builder.messageStore == nil {
				builder.messageStore = stores.MessageStore()
			}
			if builder.subscriberStore == nil {
				builder.subscriberStore = stores.SubscriberStore()
			}
		}
	}
	if builder.credentialDocs == nil {
		return nil, mapBuildError(builder.errorMapper, fmt.Errorf("core: credential doc store is required"))
	}
	if builder.reconnectPolicy == nil {
		builder.reconnectPolicy = newReconnectPolicy(finalConfig.Reconnect)
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	return &Gateway{
		config:            finalConfig,
		logger:            logger,
		loggerProvider:    provider,
		metricsRecorder:   builder.metricsRecorder,
		errorFactory:      builder.errorFactory,
		errorMapper:       builder.errorMapper,
		persistenceClient: builder.persistenceClient,
		repositoryFactory: builder.repositoryFactory,
		configProvider:    builder.configProvider,
		optionsResolver:   builder.optionsResolver,
		engine:            builder.engine,
		accountStore:      builder.accountStore,
		credentialDocs:    builder.credentialDocs,
		messageStore:      builder.messageStore,
		subscriberStore:   builder.subscriberStore,
		dispatcher:        builder.dispatcher,
		mediaCapturer:     builder.mediaCapturer,
		credentialCodec:   builder.credentialCodec,
		reconnectPolicy:   builder.reconnectPolicy,
		jobEnqueuer:       builder.jobEnqueuer,
		registry:          NewAccountRegistry(),
		runCtx:            runCtx,
		runCancel:         runCancel,
	}, nil
}

func Setup(cfg Config, options ...Option) (*Gateway, error) {
	return NewGateway(cfg, options...)
}

func needsStoreWiring(builder gatewayBuilder) bool {
	return builder.accountStore == nil ||
		builder.credentialDocs == nil ||
		builder.messageStore == nil ||
		builder.subscriberStore == nil
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (g *Gateway) Config() Config {
	if g == nil {
		return Config{}
	}
	return g.config
}

func (g *Gateway) Dependencies() GatewayDependencies {
	if g == nil {
		return GatewayDependencies{}
	}
	return GatewayDependencies{
		Logger:          g.logger,
		LoggerProvider:  g.loggerProvider,
		MetricsRecorder: g.metricsRecorder,
		ErrorFactory:    g.errorFactory,
		ErrorMapper:     g.errorMapper,
		Engine:          g.engine,
		AccountStore:    g.accountStore,
		CredentialDocs:  g.credentialDocs,
		MessageStore:    g.messageStore,
		SubscriberStore: g.subscriberStore,
		Dispatcher:      g.dispatcher,
		MediaCapturer:   g.mediaCapturer,
		CredentialCodec: g.credentialCodec,
		ReconnectPolicy: g.reconnectPolicy,
		JobEnqueuer:     g.jobEnqueuer,
	}
}

// Close stops all background session loops. It does not log accounts out:
// credentials stay valid so the sessions resume on the next restore.
func (g *Gateway) Close(ctx context.Context) error {
	if g == nil {
		return nil
	}
	g.runCancel()
	for _, session := range g.registry.List() {
		g.registry.Remove(session.AccountID)
		session.setStatus(StatusClosed)
		g.persistStatus(ctx, session.AccountID, StatusClosed)
	}
	return nil
}

type CreateAccountRequest struct {
	AccountID      string
	Name           string
	CollectionName string
}

// CreateAccount registers the account (idempotently) and ensures exactly
// one live session exists for it. Concurrent calls for the same account
// share a single engine dial.
func (g *Gateway) CreateAccount(ctx context.Context, req CreateAccountRequest) (status AccountStatus, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"account_id": req.AccountID,
	}
	defer func() {
		g.observeOperation(ctx, startedAt, "create_account", err, fields)
	}()

	accountID := strings.TrimSpace(req.AccountID)
	if accountID == "" {
		err = g.mapError(fmt.Errorf("core: account id is required"))
		return AccountStatus{}, err
	}
	collection := strings.TrimSpace(req.CollectionName)
	if collection == "" {
		collection = DefaultCollectionName(accountID)
	}

	if g.accountStore != nil {
		if ensureErr := g.ensureAccountRecord(ctx, accountID, req.Name, collection); ensureErr != nil {
			err = g.mapError(ensureErr)
			return AccountStatus{}, err
		}
	}

	session, created, openErr := g.registry.CreateOrGet(ctx, accountID, func(ctx context.Context) (*AccountSession, error) {
		return g.openSession(ctx, accountID, collection)
	})
	if openErr != nil {
		g.persistStatus(ctx, accountID, StatusNotStarted)
		err = g.mapError(openErr)
		return AccountStatus{}, err
	}
	fields["created"] = created
	return session.Snapshot(), nil
}

func (g *Gateway) ensureAccountRecord(ctx context.Context, accountID string, name string, collection string) error {
	_, err := g.accountStore.Get(ctx, accountID)
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return err
	}
	_, createErr := g.accountStore.Create(ctx, AccountRecord{
		AccountID:      accountID,
		Name:           strings.TrimSpace(name),
		CollectionName: collection,
		Status:         StatusConnecting,
	})
	if createErr != nil && !isConflict(createErr) {
		return createErr
	}
	return nil
}

// openSession is the single-flight leader path: build the credential
// adapter, dial the engine once, and hand the event stream to its loop.
func (g *Gateway) openSession(ctx context.Context, accountID string, collection string) (*AccountSession, error) {
	auth, err := NewKeyStoreAdapter(g.credentialDocs, g.credentialCodec, collection, g.logger)
	if err != nil {
		return nil, err
	}

	live, err := g.engine.Open(ctx, accountID, auth)
	if err != nil {
		return nil, fmt.Errorf("core: engine open failed for account %s: %w", accountID, err)
	}

	session := NewAccountSession(accountID, collection)
	session.setSession(live)
	g.persistStatus(ctx, accountID, StatusConnecting)
	go g.runSession(session, auth, live)
	return session, nil
}

// GetAccount reports the live snapshot, falling back to the durable row
// for accounts without a running session.
func (g *Gateway) GetAccount(ctx context.Context, accountID string) (AccountStatus, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return AccountStatus{}, g.mapError(fmt.Errorf("core: account id is required"))
	}
	if session, ok := g.registry.Get(accountID); ok {
		return session.Snapshot(), nil
	}
	if g.accountStore != nil {
		record, err := g.accountStore.Get(ctx, accountID)
		if err == nil {
			return accountStatusFromRecord(record), nil
		}
		if !isNotFound(err) {
			return AccountStatus{}, g.mapError(err)
		}
	}
	return AccountStatus{}, g.mapError(ErrAccountNotFound)
}

// ListAccounts merges live sessions with durable rows; a live session
// wins over its stored status.
func (g *Gateway) ListAccounts(ctx context.Context) ([]AccountStatus, error) {
	seen := make(map[string]bool)
	out := make([]AccountStatus, 0)
	for _, session := range g.registry.List() {
		out = append(out, session.Snapshot())
		seen[session.AccountID] = true
	}
	if g.accountStore != nil {
		records, err := g.accountStore.List(ctx)
		if err != nil {
			return nil, g.mapError(err)
		}
		for _, record := range records {
			if seen[record.AccountID] {
				continue
			}
			out = append(out, accountStatusFromRecord(record))
		}
	}
	return out, nil
}

func accountStatusFromRecord(record AccountRecord) AccountStatus {
	status := record.Status
	if status == "" || status == StatusConnected || status == StatusConnecting || status == StatusReconnecting {
		// No live session backs the stored state, so it is stale.
		status = StatusNotStarted
	}
	return AccountStatus{
		AccountID:      record.AccountID,
		Status:         status,
		CollectionName: record.CollectionName,
	}
}

// RemoveAccount tears the account down: best-effort logout, credential
// collection drop, then the durable row. The registry entry goes first so
// the reconnect loop cannot resurrect the session mid-teardown.
func (g *Gateway) RemoveAccount(ctx context.Context, accountID string) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"account_id": accountID,
	}
	defer func() {
		g.observeOperation(ctx, startedAt, "remove_account", err, fields)
	}()

	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		err = g.mapError(fmt.Errorf("core: account id is required"))
		return err
	}

	collection := DefaultCollectionName(accountID)
	session, hadLive := g.registry.Remove(accountID)
	if hadLive {
		collection = session.CollectionName
		session.setStatus(StatusClosed)
		if live := session.Session(); live != nil {
			if logoutErr := live.Logout(ctx); logoutErr != nil {
				g.logError(ctx, "logout during removal failed", map[string]any{
					"account_id": accountID,
					"error":      logoutErr.Error(),
				})
			}
		}
	}

	if g.accountStore != nil {
		stored, deleteErr := g.accountStore.Delete(ctx, accountID)
		if deleteErr != nil {
			if !hadLive && isNotFound(deleteErr) {
				err = g.mapError(ErrAccountNotFound)
				return err
			}
			if !isNotFound(deleteErr) {
				err = g.mapError(deleteErr)
				return err
			}
		} else if strings.TrimSpace(stored) != "" {
			collection = stored
		}
	} else if !hadLive {
		err = g.mapError(ErrAccountNotFound)
		return err
	}

	if dropErr := g.credentialDocs.Drop(ctx, collection); dropErr != nil {
		g.logError(ctx, "credential drop during removal failed", map[string]any{
			"account_id":      accountID,
			"collection_name": collection,
			"error":           dropErr.Error(),
		})
	}
	return nil
}

// SendText sends through the account's live session. Only a connected
// session accepts sends; anything else surfaces ErrNotConnected.
func (g *Gateway) SendText(ctx context.Context, accountID string, destination string, text string) (messageID string, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"account_id": accountID,
	}
	defer func() {
		g.observeOperation(ctx, startedAt, "send_text", err, fields)
	}()

	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		err = g.mapError(fmt.Errorf("core: account id is required"))
		return "", err
	}
	if strings.TrimSpace(destination) == "" {
		err = g.mapError(fmt.Errorf("core: destination is required"))
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		err = g.mapError(fmt.Errorf("core: text is required"))
		return "", err
	}

	session, ok := g.registry.Get(accountID)
	if !ok {
		err = g.mapError(ErrAccountNotFound)
		return "", err
	}
	if session.Status() != StatusConnected {
		err = g.mapError(ErrNotConnected)
		return "", err
	}
	live := session.Session()
	if live == nil {
		err = g.mapError(ErrNotConnected)
		return "", err
	}

	messageID, sendErr := live.SendText(ctx, destination, text)
	if sendErr != nil {
		err = g.mapError(sendErr)
		return "", err
	}
	fields["message_id"] = messageID
	return messageID, nil
}

// ListMessages reads the canonical records, newest first.
func (g *Gateway) ListMessages(ctx context.Context, filter MessageFilter) (MessagePage, error) {
	if g.messageStore == nil {
		return MessagePage{}, g.mapError(fmt.Errorf("core: message store is not configured"))
	}
	if strings.TrimSpace(filter.AccountID) == "" {
		return MessagePage{}, g.mapError(fmt.Errorf("core: account id is required"))
	}
	page, err := g.messageStore.List(ctx, filter)
	if err != nil {
		return MessagePage{}, g.mapError(err)
	}
	return page, nil
}

func (g *Gateway) GetMessage(ctx context.Context, accountID string, messageID string) (MessageRecord, error) {
	if g.messageStore == nil {
		return MessageRecord{}, g.mapError(fmt.Errorf("core: message store is not configured"))
	}
	if strings.TrimSpace(accountID) == "" || strings.TrimSpace(messageID) == "" {
		return MessageRecord{}, g.mapError(fmt.Errorf("core: account id and message id are required"))
	}
	record, err := g.messageStore.Get(ctx, accountID, messageID)
	if err != nil {
		return MessageRecord{}, g.mapError(err)
	}
	return record, nil
}

// Subscribe registers a webhook destination, deduplicating by URL.
func (g *Gateway) Subscribe(ctx context.Context, url string) (Subscriber, bool, error) {
	if g.subscriberStore == nil {
		return Subscriber{}, false, g.mapError(fmt.Errorf("core: subscriber store is not configured"))
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return Subscriber{}, false, g.mapError(fmt.Errorf("core: subscriber url is required"))
	}
	subscriber, created, err := g.subscriberStore.UpsertByURL(ctx, url)
	if err != nil {
		return Subscriber{}, false, g.mapError(err)
	}
	return subscriber, created, nil
}

func (g *Gateway) ListSubscribers(ctx context.Context) ([]Subscriber, error) {
	if g.subscriberStore == nil {
		return nil, g.mapError(fmt.Errorf("core: subscriber store is not configured"))
	}
	subscribers, err := g.subscriberStore.List(ctx)
	if err != nil {
		return nil, g.mapError(err)
	}
	return subscribers, nil
}

func (g *Gateway) mapError(err error) error {
	if err == nil {
		return nil
	}
	if g == nil || g.errorMapper == nil {
		return err
	}
	mapped := g.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func isConflict(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.Category == goerrors.CategoryConflict
	}
	return strings.Contains(strings.ToLower(err.Error()), "already exists")
}
