package wildcat

import "github.com/wildcatlabs/wildcat/core"

type Config = core.Config

type ReconnectConfig = core.ReconnectConfig
type WebhookConfig = core.WebhookConfig

type Option = core.Option

type Gateway = core.Gateway

type GatewayDependencies = core.GatewayDependencies
type AccountStore = core.AccountStore
type CredentialDocs = core.CredentialDocs
type MessageStore = core.MessageStore
type SubscriberStore = core.SubscriberStore
type EventDispatcher = core.EventDispatcher
type MediaCapturer = core.MediaCapturer
type ReconnectPolicy = core.ReconnectPolicy

type CreateAccountRequest = core.CreateAccountRequest

type AccountStatus = core.AccountStatus
type MessageFilter = core.MessageFilter
type MessagePage = core.MessagePage
type MessageRecord = core.MessageRecord
type Subscriber = core.Subscriber
type RestoreResult = core.RestoreResult

var (
	WithLogger            = core.WithLogger
	WithLoggerProvider    = core.WithLoggerProvider
	WithMetricsRecorder   = core.WithMetricsRecorder
	WithErrorFactory      = core.WithErrorFactory
	WithErrorMapper       = core.WithErrorMapper
	WithConfigProvider    = core.WithConfigProvider
	WithOptionsResolver   = core.WithOptionsResolver
	WithPersistenceClient = core.WithPersistenceClient
	WithRepositoryFactory = core.WithRepositoryFactory
	WithEngine            = core.WithEngine
	WithAccountStore      = core.WithAccountStore
	WithCredentialDocs    = core.WithCredentialDocs
	WithMessageStore      = core.WithMessageStore
	WithSubscriberStore   = core.WithSubscriberStore
	WithEventDispatcher   = core.WithEventDispatcher
	WithMediaCapturer     = core.WithMediaCapturer
	WithCredentialCodec   = core.WithCredentialCodec
	WithReconnectPolicy   = core.WithReconnectPolicy
	WithJobEnqueuer       = core.WithJobEnqueuer
)

// Bool wraps v for optional config fields like Config.AutoConnect.
var Bool = core.Bool

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewGateway(cfg Config, opts ...Option) (*Gateway, error) {
	return core.NewGateway(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Gateway, error) {
	return core.Setup(cfg, opts...)
}
