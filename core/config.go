package core

import (
	"fmt"
	"strings"
	"time"
)

type ReconnectConfig struct {
	// InitialDelay is the wait before the first reconnect attempt.
	InitialDelay time.Duration `koanf:"initial_delay" mapstructure:"initial_delay"`
	// MaxDelay caps the backoff growth. Equal to InitialDelay means a
	// fixed-interval retry.
	MaxDelay time.Duration `koanf:"max_delay" mapstructure:"max_delay"`
	// MaxAttempts limits retries per disconnect; zero means unbounded.
	MaxAttempts int `koanf:"max_attempts" mapstructure:"max_attempts"`
}

type WebhookConfig struct {
	Timeout time.Duration `koanf:"timeout" mapstructure:"timeout"`
}

type Config struct {
	ServiceName string `koanf:"service_name" mapstructure:"service_name"`
	// AdminDestination receives the connected notice for each account.
	// Empty disables the notice.
	AdminDestination string `koanf:"admin_destination" mapstructure:"admin_destination"`
	// AutoConnect lets startup restore revive parked accounts. Nil means
	// unset, so a lower layer (or the enabled default) decides; an
	// explicit false turns it off.
	AutoConnect *bool           `koanf:"auto_connect" mapstructure:"auto_connect"`
	Reconnect   ReconnectConfig `koanf:"reconnect" mapstructure:"reconnect"`
	Webhook     WebhookConfig   `koanf:"webhook" mapstructure:"webhook"`
}

// Bool wraps v for optional config fields.
func Bool(v bool) *bool { return &v }

// AutoConnectEnabled resolves the tri-state field; unset counts as on.
func (c Config) AutoConnectEnabled() bool {
	return c.AutoConnect == nil || *c.AutoConnect
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "gateway",
		AutoConnect: Bool(true),
		Reconnect: ReconnectConfig{
			InitialDelay: 5 * time.Second,
			MaxDelay:     5 * time.Second,
		},
		Webhook: WebhookConfig{
			Timeout: 10 * time.Second,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Reconnect.InitialDelay < 0 {
		return fmt.Errorf("core: reconnect.initial_delay must not be negative")
	}
	if c.Reconnect.MaxDelay != 0 && c.Reconnect.MaxDelay < c.Reconnect.InitialDelay {
		return fmt.Errorf("core: reconnect.max_delay must be at least reconnect.initial_delay")
	}
	if c.Reconnect.MaxAttempts < 0 {
		return fmt.Errorf("core: reconnect.max_attempts must not be negative")
	}
	if c.Webhook.Timeout <= 0 {
		return fmt.Errorf("core: webhook.timeout must be positive")
	}
	return nil
}
