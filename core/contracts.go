package core

import (
	"context"
	"encoding/json"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/wildcatlabs/wildcat/protocol"
)

// AccountStore persists durable account rows independent of live sessions.
type AccountStore interface {
	Create(ctx context.Context, record AccountRecord) (AccountRecord, error)
	Get(ctx context.Context, accountID string) (AccountRecord, error)
	List(ctx context.Context) ([]AccountRecord, error)
	UpdateStatus(ctx context.Context, accountID string, status SessionStatus) error
	Delete(ctx context.Context, accountID string) (collectionName string, err error)
}

// CredentialDocs is the document surface the credential key-store adapter
// translates onto. One collection per account; one document per key.
// Read returns a NotFound-categorized error for a missing document so
// callers can distinguish absence from an unreachable store, even though
// the adapter masks both as absent toward the engine.
type CredentialDocs interface {
	Read(ctx context.Context, collection string, docID string) (json.RawMessage, error)
	Write(ctx context.Context, collection string, docID string, payload json.RawMessage) error
	Delete(ctx context.Context, collection string, docID string) error
	Drop(ctx context.Context, collection string) error
}

// MessageStore persists canonical message records, append-only.
type MessageStore interface {
	Insert(ctx context.Context, record MessageRecord) (MessageRecord, error)
	Get(ctx context.Context, accountID string, messageID string) (MessageRecord, error)
	List(ctx context.Context, filter MessageFilter) (MessagePage, error)
}

// SubscriberStore reads the registered webhook destinations. Registration
// itself belongs to the external HTTP layer.
type SubscriberStore interface {
	List(ctx context.Context) ([]Subscriber, error)
	UpsertByURL(ctx context.Context, url string) (Subscriber, bool, error)
}

// DeliveryStats summarizes one fan-out pass over the subscriber set.
type DeliveryStats struct {
	Subscribers int
	Delivered   int
	Failed      int
}

// EventDispatcher fans a redacted payload out to every registered
// subscriber. Implementations capture per-destination failures internally;
// the returned error is an aggregate for logging only.
type EventDispatcher interface {
	Deliver(ctx context.Context, payload map[string]any) (DeliveryStats, error)
}

// MediaCapturer downloads and stores a message's attachment, returning the
// backend reference for the canonical record.
type MediaCapturer interface {
	Capture(ctx context.Context, session protocol.Session, msg *protocol.Message, accountID string) (MediaRef, error)
}

// StoreProvider hands out the persistence-backed store set as one unit.
type StoreProvider interface {
	AccountStore() AccountStore
	CredentialDocs() CredentialDocs
	MessageStore() MessageStore
	SubscriberStore() SubscriberStore
}

// RepositoryStoreFactory builds a StoreProvider from an opaque persistence
// client so the core never imports the storage driver.
type RepositoryStoreFactory interface {
	BuildStores(client any) (StoreProvider, error)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// MetricsRecorder mirrors the counters/histograms surface the host wires
// in; the gateway never assumes a concrete metrics backend.
type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string)         {}
func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

// Job contracts decouple the gateway's deferred work (reconnect dispatch,
// delivery retries) from the queue implementation; adapters/gojob maps
// them onto go-job.

type JobExecutionMessage struct {
	JobID          string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

type JobWorkerEvent struct {
	Message   *JobExecutionMessage
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

type JobWorkerHook interface {
	OnStart(ctx context.Context, event JobWorkerEvent)
	OnSuccess(ctx context.Context, event JobWorkerEvent)
	OnFailure(ctx context.Context, event JobWorkerEvent)
	OnRetry(ctx context.Context, event JobWorkerEvent)
}
