package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"

	"github.com/wildcatlabs/wildcat/protocol"
)

type ErrorFactory func(message string, category ...goerrors.Category) *goerrors.Error

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type gatewayBuilder struct {
	runtimeConfig     Config
	persistenceClient any
	repositoryFactory any
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorFactory      ErrorFactory
	errorMapper       ErrorMapper
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
}

func WithPersistenceClient(client any) Option {
	return func(b *gatewayBuilder) {
		b.persistenceClient = client
	}
}

func WithRepositoryFactory(factory any) Option {
	return func(b *gatewayBuilder) {
		b.repositoryFactory = factory
	}
}

type Option func(*gatewayBuilder)

func WithLogger(logger Logger) Option {
	return func(b *gatewayBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *gatewayBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *gatewayBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorFactory(factory ErrorFactory) Option {
	return func(b *gatewayBuilder) {
		b.errorFactory = factory
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *gatewayBuilder) {
		b.errorMapper = mapper
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *gatewayBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *gatewayBuilder) {
		b.optionsResolver = resolver
	}
}

func WithEngine(engine protocol.Engine) Option {
	return func(b *gatewayBuilder) {
		b.engine = engine
	}
}

func WithAccountStore(store AccountStore) Option {
	return func(b *gatewayBuilder) {
		b.accountStore = store
	}
}

func WithCredentialDocs(docs CredentialDocs) Option {
	return func(b *gatewayBuilder) {
		b.credentialDocs = docs
	}
}

func WithMessageStore(store MessageStore) Option {
	return func(b *gatewayBuilder) {
		b.messageStore = store
	}
}

func WithSubscriberStore(store SubscriberStore) Option {
	return func(b *gatewayBuilder) {
		b.subscriberStore = store
	}
}

func WithEventDispatcher(dispatcher EventDispatcher) Option {
	return func(b *gatewayBuilder) {
		b.dispatcher = dispatcher
	}
}

func WithMediaCapturer(capturer MediaCapturer) Option {
	return func(b *gatewayBuilder) {
		b.mediaCapturer = capturer
	}
}

func WithCredentialCodec(codec CredentialCodec) Option {
	return func(b *gatewayBuilder) {
		b.credentialCodec = codec
	}
}

func WithReconnectPolicy(policy ReconnectPolicy) Option {
	return func(b *gatewayBuilder) {
		b.reconnectPolicy = policy
	}
}

func WithJobEnqueuer(enqueuer JobEnqueuer) Option {
	return func(b *gatewayBuilder) {
		b.jobEnqueuer = enqueuer
	}
}

func defaultGatewayBuilder(runtime Config) gatewayBuilder {
	loggerProvider, logger := glog.Resolve("gateway", nil, nil)
	return gatewayBuilder{
		runtimeConfig:   runtime,
		loggerProvider:  loggerProvider,
		logger:          logger,
		metricsRecorder: NopMetricsRecorder{},
		errorFactory:    goerrors.New,
		errorMapper:     defaultErrorMapper,
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
		credentialCodec: TaggedJSONCredentialCodec{},
	}
}

func defaultErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	return gatewayErrorMapper(err)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}
	if includeZero || strings.TrimSpace(cfg.AdminDestination) != "" {
		layer["admin_destination"] = cfg.AdminDestination
	}
	// Tri-state: only a set pointer enters the layer, so an explicit
	// false in a higher layer beats the enabled default.
	if cfg.AutoConnect != nil {
		layer["auto_connect"] = *cfg.AutoConnect
	}
	if includeZero || cfg.Reconnect != (ReconnectConfig{}) {
		layer["reconnect"] = map[string]any{
			"initial_delay": cfg.Reconnect.InitialDelay,
			"max_delay":     cfg.Reconnect.MaxDelay,
			"max_attempts":  cfg.Reconnect.MaxAttempts,
		}
	}
	if includeZero || cfg.Webhook != (WebhookConfig{}) {
		layer["webhook"] = map[string]any{
			"timeout": cfg.Webhook.Timeout,
		}
	}
	return layer
}
