package core

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.ServiceName != "gateway" {
		t.Fatalf("expected service name gateway, got %q", cfg.ServiceName)
	}
	if !cfg.AutoConnectEnabled() {
		t.Fatal("expected auto_connect enabled by default")
	}
	if unset := (Config{}); !unset.AutoConnectEnabled() {
		t.Fatal("expected unset auto_connect to count as enabled")
	}
	if cfg.Reconnect.InitialDelay != 5*time.Second || cfg.Reconnect.MaxDelay != 5*time.Second {
		t.Fatalf("unexpected reconnect defaults: %+v", cfg.Reconnect)
	}
	if cfg.Reconnect.MaxAttempts != 0 {
		t.Fatalf("expected unbounded reconnect attempts by default, got %d", cfg.Reconnect.MaxAttempts)
	}
	if cfg.Webhook.Timeout != 10*time.Second {
		t.Fatalf("unexpected webhook timeout: %v", cfg.Webhook.Timeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestConfig_ValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"blank service name", func(c *Config) { c.ServiceName = "  " }},
		{"negative initial delay", func(c *Config) { c.Reconnect.InitialDelay = -time.Second }},
		{"max delay below initial", func(c *Config) {
			c.Reconnect.InitialDelay = 10 * time.Second
			c.Reconnect.MaxDelay = time.Second
		}},
		{"negative max attempts", func(c *Config) { c.Reconnect.MaxAttempts = -1 }},
		{"zero webhook timeout", func(c *Config) { c.Webhook.Timeout = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestConfig_ValidateAllowsZeroMaxDelay(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Reconnect.MaxDelay = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("zero max delay means uncapped and should validate: %v", err)
	}
}
