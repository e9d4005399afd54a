package core

import (
	"context"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/wildcatlabs/wildcat/protocol/devkit"
)

type stubLogger struct{}

func (stubLogger) Trace(string, ...any) {}
func (stubLogger) Debug(string, ...any) {}
func (stubLogger) Info(string, ...any)  {}
func (stubLogger) Warn(string, ...any)  {}
func (stubLogger) Error(string, ...any) {}
func (stubLogger) Fatal(string, ...any) {}
func (s stubLogger) WithContext(context.Context) Logger {
	return s
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

type mapRawLoader struct {
	values map[string]any
}

func (l mapRawLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.values))
	for key, value := range l.values {
		out[key] = value
	}
	return out, nil
}

type fixedConfigProvider struct {
	cfg Config
}

func (p *fixedConfigProvider) Load(context.Context, Config) (Config, error) {
	return p.cfg, nil
}

type fixedOptionsResolver struct {
	cfg Config
}

func (r *fixedOptionsResolver) Resolve(Config, Config, Config) (Config, error) {
	return r.cfg, nil
}

func TestNewGateway_DefaultDependencies(t *testing.T) {
	gateway, err := NewGateway(Config{},
		WithEngine(devkit.NewEngine()),
		WithCredentialDocs(newMemoryCredentialDocs()),
	)
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	t.Cleanup(func() { gateway.Close(context.Background()) })

	deps := gateway.Dependencies()
	if deps.Logger == nil {
		t.Fatalf("expected default logger")
	}
	if deps.ErrorFactory == nil {
		t.Fatalf("expected default error factory")
	}
	if deps.ErrorMapper == nil {
		t.Fatalf("expected default error mapper")
	}
	if deps.CredentialCodec == nil {
		t.Fatalf("expected default credential codec")
	}
	if deps.ReconnectPolicy == nil {
		t.Fatalf("expected reconnect policy derived from config")
	}
	if got := gateway.Config().ServiceName; got != "gateway" {
		t.Fatalf("expected default config service_name=gateway, got %q", got)
	}
}

func TestNewGateway_WithXOverrides(t *testing.T) {
	customLogger := stubLogger{}
	customProvider := stubLoggerProvider{logger: customLogger}
	customFactory := func(message string, category ...goerrors.Category) *goerrors.Error {
		return goerrors.New("custom:"+message, category...)
	}
	customMapper := func(error) *goerrors.Error {
		return goerrors.New("mapped", goerrors.CategoryOperation)
	}
	configProvider := &fixedConfigProvider{cfg: Config{ServiceName: "from-provider"}}
	optionsResolver := &fixedOptionsResolver{cfg: DefaultConfig()}
	policy := FixedDelayPolicy{Delay: 0}
	enqueuer := &capturingEnqueuer{}

	gateway, err := NewGateway(Config{ServiceName: "runtime"},
		WithEngine(devkit.NewEngine()),
		WithCredentialDocs(newMemoryCredentialDocs()),
		WithLogger(customLogger),
		WithLoggerProvider(customProvider),
		WithErrorFactory(customFactory),
		WithErrorMapper(customMapper),
		WithConfigProvider(configProvider),
		WithOptionsResolver(optionsResolver),
		WithReconnectPolicy(policy),
		WithJobEnqueuer(enqueuer),
	)
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	t.Cleanup(func() { gateway.Close(context.Background()) })

	deps := gateway.Dependencies()
	if deps.Logger != customLogger {
		t.Fatalf("expected custom logger override")
	}
	if deps.ReconnectPolicy != policy {
		t.Fatalf("expected custom reconnect policy override")
	}
	if deps.JobEnqueuer != JobEnqueuer(enqueuer) {
		t.Fatalf("expected custom job enqueuer override")
	}
	if mapped := deps.ErrorMapper(ErrAccountNotFound); mapped.Message != "mapped" {
		t.Fatalf("expected custom error mapper output, got %q", mapped.Message)
	}
	if got := gateway.Config().ServiceName; got != "gateway" {
		t.Fatalf("expected options resolver output config, got %q", got)
	}
}

func TestNewGateway_ConfigLayeringPrecedence(t *testing.T) {
	provider := NewCfgxConfigProvider(mapRawLoader{values: map[string]any{
		"service_name": "from-config",
		"reconnect": map[string]any{
			"max_attempts": 3,
		},
	}})

	gateway, err := NewGateway(Config{ServiceName: "from-runtime"},
		WithEngine(devkit.NewEngine()),
		WithCredentialDocs(newMemoryCredentialDocs()),
		WithConfigProvider(provider),
	)
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	t.Cleanup(func() { gateway.Close(context.Background()) })

	cfg := gateway.Config()
	if cfg.ServiceName != "from-runtime" {
		t.Fatalf("expected runtime value to override config/default, got %q", cfg.ServiceName)
	}
	if cfg.Reconnect.MaxAttempts != 3 {
		t.Fatalf("expected config layer reconnect.max_attempts, got %d", cfg.Reconnect.MaxAttempts)
	}
	if !cfg.AutoConnectEnabled() {
		t.Fatal("expected default auto_connect to survive layering")
	}
}

func TestNewGateway_ExplicitAutoConnectOffSurvivesLayering(t *testing.T) {
	gateway, err := NewGateway(Config{AutoConnect: Bool(false)},
		WithEngine(devkit.NewEngine()),
		WithCredentialDocs(newMemoryCredentialDocs()),
	)
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	t.Cleanup(func() { gateway.Close(context.Background()) })

	if gateway.Config().AutoConnectEnabled() {
		t.Fatal("explicit auto_connect=false must beat the enabled default")
	}

	// The loaded-config layer can disable it too.
	provider := NewCfgxConfigProvider(mapRawLoader{values: map[string]any{
		"auto_connect": false,
	}})
	gateway, err = NewGateway(Config{},
		WithEngine(devkit.NewEngine()),
		WithCredentialDocs(newMemoryCredentialDocs()),
		WithConfigProvider(provider),
	)
	if err != nil {
		t.Fatalf("new gateway with config provider: %v", err)
	}
	t.Cleanup(func() { gateway.Close(context.Background()) })

	if gateway.Config().AutoConnectEnabled() {
		t.Fatal("loaded auto_connect=false must beat the enabled default")
	}
}
