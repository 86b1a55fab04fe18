package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestDefaultHealthPolicy(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Health.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", cfg.Health.Attempts)
	}
	if cfg.Health.RetryDelay != 2*time.Second {
		t.Errorf("RetryDelay = %v, want 2s", cfg.Health.RetryDelay)
	}
	if cfg.Health.AttemptTimeout != 10*time.Second {
		t.Errorf("AttemptTimeout = %v, want 10s", cfg.Health.AttemptTimeout)
	}
	want := map[int]bool{401: true, 403: true}
	for _, s := range cfg.Health.HealthyStatuses {
		if !want[s] {
			t.Errorf("unexpected healthy status %d", s)
		}
		delete(want, s)
	}
	if len(want) != 0 {
		t.Errorf("missing healthy statuses: %v", want)
	}
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
server:
  address: ":9999"
provider:
  name: "livekit"
  enabled: true
  livekit:
    host: "http://livekit:7880"
redis:
  enabled: true
  address: "redis:6379"
  pool_size: 5
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Address != ":9999" {
		t.Errorf("Address = %q", cfg.Server.Address)
	}
	if cfg.Provider.Name != "livekit" {
		t.Errorf("Provider.Name = %q", cfg.Provider.Name)
	}
	if cfg.Provider.LiveKit.Host != "http://livekit:7880" {
		t.Errorf("LiveKit.Host = %q", cfg.Provider.LiveKit.Host)
	}
	if !cfg.Redis.Enabled || cfg.Redis.Address != "redis:6379" {
		t.Errorf("redis config not applied: %+v", cfg.Redis)
	}
	// Untouched sections keep their defaults.
	if cfg.Tracker.ConnectionTimeout != 60*time.Second {
		t.Errorf("ConnectionTimeout = %v, want 60s", cfg.Tracker.ConnectionTimeout)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file must fall back to defaults: %v", err)
	}
	if cfg.Provider.Name != "openvidu" {
		t.Errorf("Provider.Name = %q, want openvidu", cfg.Provider.Name)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CONSULT_PROVIDER_NAME", "livekit")
	t.Setenv("CONSULT_LIVEKIT_HOST", "http://lk:7880")
	t.Setenv("CONSULT_AUTH_SECRET", "s3cret")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Provider.Name != "livekit" {
		t.Errorf("Provider.Name = %q", cfg.Provider.Name)
	}
	if cfg.Provider.LiveKit.Host != "http://lk:7880" {
		t.Errorf("LiveKit.Host = %q", cfg.Provider.LiveKit.Host)
	}
	if !cfg.Auth.Enabled || cfg.Auth.Secret != "s3cret" {
		t.Errorf("auth override not applied: %+v", cfg.Auth)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty address", func(c *Config) { c.Server.Address = "" }},
		{"unknown provider", func(c *Config) { c.Provider.Name = "zoom" }},
		{"zero token ttl", func(c *Config) { c.Provider.TokenTTL = 0 }},
		{"zero attempts", func(c *Config) { c.Health.Attempts = 0 }},
		{"bad healthy status", func(c *Config) { c.Health.HealthyStatuses = []int{42} }},
		{"zero metrics ttl", func(c *Config) { c.Tracker.MetricsTTL = 0 }},
		{"redis without address", func(c *Config) {
			c.Redis.Enabled = true
			c.Redis.Address = ""
		}},
		{"auth without secret", func(c *Config) {
			c.Auth.Enabled = true
			c.Auth.Secret = ""
		}},
		{"rate limit zero rps", func(c *Config) {
			c.RateLimiting.Enabled = true
			c.RateLimiting.RequestsPerSecond = 0
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
