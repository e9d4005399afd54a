package core

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/wildcatlabs/wildcat/protocol"
)

type memoryAccountStore struct {
	mu       sync.Mutex
	accounts map[string]AccountRecord
}

func newMemoryAccountStore() *memoryAccountStore {
	return &memoryAccountStore{accounts: map[string]AccountRecord{}}
}

func (s *memoryAccountStore) Create(_ context.Context, record AccountRecord) (AccountRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record.AccountID = strings.TrimSpace(record.AccountID)
	if record.AccountID == "" {
		return AccountRecord{}, fmt.Errorf("account id is required")
	}
	if _, ok := s.accounts[record.AccountID]; ok {
		return AccountRecord{}, goerrors.New(
			fmt.Sprintf("account %q already exists", record.AccountID),
			goerrors.CategoryConflict,
		)
	}
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now
	s.accounts[record.AccountID] = record
	return record, nil
}

func (s *memoryAccountStore) Get(_ context.Context, accountID string) (AccountRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.accounts[strings.TrimSpace(accountID)]
	if !ok {
		return AccountRecord{}, goerrors.New(
			fmt.Sprintf("account %q not found", accountID),
			goerrors.CategoryNotFound,
		)
	}
	return record, nil
}

func (s *memoryAccountStore) List(context.Context) ([]AccountRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AccountRecord, 0, len(s.accounts))
	for _, record := range s.accounts {
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out, nil
}

func (s *memoryAccountStore) UpdateStatus(_ context.Context, accountID string, status SessionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.accounts[strings.TrimSpace(accountID)]
	if !ok {
		return goerrors.New(
			fmt.Sprintf("account %q not found", accountID),
			goerrors.CategoryNotFound,
		)
	}
	record.Status = status
	record.UpdatedAt = time.Now().UTC()
	s.accounts[record.AccountID] = record
	return nil
}

func (s *memoryAccountStore) Delete(_ context.Context, accountID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.accounts[strings.TrimSpace(accountID)]
	if !ok {
		return "", goerrors.New(
			fmt.Sprintf("account %q not found", accountID),
			goerrors.CategoryNotFound,
		)
	}
	delete(s.accounts, record.AccountID)
	return record.CollectionName, nil
}

func (s *memoryAccountStore) status(accountID string) SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[accountID].Status
}

type memoryCredentialDocs struct {
	mu   sync.Mutex
	docs map[string]map[string]json.RawMessage
}

func newMemoryCredentialDocs() *memoryCredentialDocs {
	return &memoryCredentialDocs{docs: map[string]map[string]json.RawMessage{}}
}

func (s *memoryCredentialDocs) Read(_ context.Context, collection string, docID string) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, ok := s.docs[collection][docID]
	if !ok {
		return nil, goerrors.New(
			fmt.Sprintf("document %q not found in %q", docID, collection),
			goerrors.CategoryNotFound,
		)
	}
	return append(json.RawMessage(nil), payload...), nil
}

func (s *memoryCredentialDocs) Write(_ context.Context, collection string, docID string, payload json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.docs[collection] == nil {
		s.docs[collection] = map[string]json.RawMessage{}
	}
	s.docs[collection][docID] = append(json.RawMessage(nil), payload...)
	return nil
}

func (s *memoryCredentialDocs) Delete(_ context.Context, collection string, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs[collection], docID)
	return nil
}

func (s *memoryCredentialDocs) Drop(_ context.Context, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, collection)
	return nil
}

func (s *memoryCredentialDocs) collectionSize(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs[collection])
}

type memoryMessageStore struct {
	mu      sync.Mutex
	records []MessageRecord
	failErr error
}

func newMemoryMessageStore() *memoryMessageStore {
	return &memoryMessageStore{}
}

func (s *memoryMessageStore) failInserts(err error) {
	s.mu.Lock()
	s.failErr = err
	s.mu.Unlock()
}

func (s *memoryMessageStore) Insert(_ context.Context, record MessageRecord) (MessageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return MessageRecord{}, s.failErr
	}
	for _, existing := range s.records {
		if existing.AccountID == record.AccountID && existing.MessageID == record.MessageID {
			return MessageRecord{}, goerrors.New(
				fmt.Sprintf("message %q already recorded", record.MessageID),
				goerrors.CategoryConflict,
			)
		}
	}
	s.records = append(s.records, record)
	return record, nil
}

func (s *memoryMessageStore) Get(_ context.Context, accountID string, messageID string) (MessageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range s.records {
		if record.AccountID == accountID && record.MessageID == messageID {
			return record, nil
		}
	}
	return MessageRecord{}, goerrors.New(
		fmt.Sprintf("message %q not found", messageID),
		goerrors.CategoryNotFound,
	)
}

func (s *memoryMessageStore) List(_ context.Context, filter MessageFilter) (MessagePage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []MessageRecord
	for _, record := range s.records {
		if record.AccountID != filter.AccountID {
			continue
		}
		if filter.ChatID != "" && record.ChatID != filter.ChatID {
			continue
		}
		items = append(items, record)
	}
	return MessagePage{
		Items:   items,
		Page:    filter.Page,
		PerPage: filter.PerPage,
		Total:   len(items),
	}, nil
}

func (s *memoryMessageStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

type memorySubscriberStore struct {
	mu          sync.Mutex
	subscribers []Subscriber
}

func newMemorySubscriberStore() *memorySubscriberStore {
	return &memorySubscriberStore{}
}

func (s *memorySubscriberStore) List(context.Context) ([]Subscriber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Subscriber(nil), s.subscribers...), nil
}

func (s *memorySubscriberStore) UpsertByURL(_ context.Context, url string) (Subscriber, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	url = strings.TrimSpace(url)
	for _, existing := range s.subscribers {
		if existing.URL == url {
			return existing, false, nil
		}
	}
	subscriber := Subscriber{
		ID:        fmt.Sprintf("sub_%d", len(s.subscribers)+1),
		URL:       url,
		CreatedAt: time.Now().UTC(),
	}
	s.subscribers = append(s.subscribers, subscriber)
	return subscriber, true, nil
}

type capturingDispatcher struct {
	mu       sync.Mutex
	payloads []map[string]any
}

func (d *capturingDispatcher) Deliver(_ context.Context, payload map[string]any) (DeliveryStats, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.payloads = append(d.payloads, payload)
	return DeliveryStats{Subscribers: 1, Delivered: 1}, nil
}

func (d *capturingDispatcher) delivered() []map[string]any {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]map[string]any(nil), d.payloads...)
}

type stubMediaCapturer struct {
	mu       sync.Mutex
	captured []string
	err      error
}

func (c *stubMediaCapturer) failCaptures(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

func (c *stubMediaCapturer) Capture(
	_ context.Context,
	_ protocol.Session,
	msg *protocol.Message,
	accountID string,
) (MediaRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return MediaRef{}, c.err
	}
	c.captured = append(c.captured, msg.Key.ID)
	return MediaRef{
		ObjectID: "obj-" + msg.Key.ID,
		URL:      "/accounts/" + accountID + "/messages/" + msg.Key.ID + "/media",
		Mimetype: "image/jpeg",
		Size:     3,
	}, nil
}

type capturingEnqueuer struct {
	mu       sync.Mutex
	messages []*JobExecutionMessage
	err      error
}

func (e *capturingEnqueuer) Enqueue(_ context.Context, msg *JobExecutionMessage) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.messages = append(e.messages, msg)
	return nil
}

func (e *capturingEnqueuer) enqueued() []*JobExecutionMessage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*JobExecutionMessage(nil), e.messages...)
}

type gatewayFixture struct {
	gateway     *Gateway
	engine      protocol.Engine
	accounts    *memoryAccountStore
	credentials *memoryCredentialDocs
	messages    *memoryMessageStore
	subscribers *memorySubscriberStore
	dispatcher  *capturingDispatcher
	media       *stubMediaCapturer
}

func newGatewayFixture(t *testing.T, engine protocol.Engine, opts ...Option) *gatewayFixture {
	t.Helper()

	fixture := &gatewayFixture{
		engine:      engine,
		accounts:    newMemoryAccountStore(),
		credentials: newMemoryCredentialDocs(),
		messages:    newMemoryMessageStore(),
		subscribers: newMemorySubscriberStore(),
		dispatcher:  &capturingDispatcher{},
		media:       &stubMediaCapturer{},
	}

	options := append([]Option{
		WithEngine(engine),
		WithAccountStore(fixture.accounts),
		WithCredentialDocs(fixture.credentials),
		WithMessageStore(fixture.messages),
		WithSubscriberStore(fixture.subscribers),
		WithEventDispatcher(fixture.dispatcher),
		WithMediaCapturer(fixture.media),
	}, opts...)

	gateway, err := NewGateway(DefaultConfig(), options...)
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	fixture.gateway = gateway
	return fixture
}

// waitFor polls until condition returns true or the deadline passes.
func waitFor(timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return condition()
}
