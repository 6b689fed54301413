package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Delivery.AllowedPrefix != "https://discord.com/api/webhooks/" {
		t.Errorf("unexpected allowed prefix %q", cfg.Delivery.AllowedPrefix)
	}
	if cfg.Breaker.Timeout != 30*time.Second {
		t.Errorf("expected breaker timeout 30s, got %v", cfg.Breaker.Timeout)
	}
	if cfg.NATS.URL != "" {
		t.Errorf("NATS should be disabled by default, got %q", cfg.NATS.URL)
	}
	if err := validate(&cfg); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoadYAMLOverride(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "test.yaml")

	content := `
server:
  port: "9090"
  admin_token: "from-yaml"
postgres:
  max_conns: 20
logging:
  level: "debug"
  async: true
delivery:
  timeout: 3s
cache:
  ttl: 1m
`
	if err := os.WriteFile(yamlPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, yamlPath); err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.AdminToken != "from-yaml" {
		t.Errorf("expected admin token from yaml, got %q", cfg.Server.AdminToken)
	}
	if cfg.Postgres.MaxConns != 20 {
		t.Errorf("expected max_conns 20, got %d", cfg.Postgres.MaxConns)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.Async {
		t.Errorf("unexpected logging %+v", cfg.Logging)
	}
	if cfg.Delivery.Timeout != 3*time.Second {
		t.Errorf("expected delivery timeout 3s, got %v", cfg.Delivery.Timeout)
	}
	if cfg.Cache.TTL != time.Minute {
		t.Errorf("expected cache ttl 1m, got %v", cfg.Cache.TTL)
	}
	// Unchanged fields keep defaults
	if cfg.Breaker.MaxFailures != 5 {
		t.Errorf("expected default breaker failures, got %d", cfg.Breaker.MaxFailures)
	}
}

func TestLoadYAMLMissing(t *testing.T) {
	cfg := Defaults()
	if err := loadYAML(&cfg, "/nonexistent/path.yaml"); err != nil {
		t.Errorf("missing YAML should not error, got %v", err)
	}
}

func TestLoadYAMLInvalid(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(yamlPath, []byte("server: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := Defaults()
	if err := loadYAML(&cfg, yamlPath); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEnvOverride(t *testing.T) {
	cfg := Defaults()

	t.Setenv("HOOKRELAY_PORT", "7070")
	t.Setenv("DATABASE_URL", "postgres://test:test@db:5432/test")
	t.Setenv("NATS_URL", "nats://nats:4222")
	t.Setenv("HOOKRELAY_PG_MAX_CONNS", "25")
	t.Setenv("HOOKRELAY_LOG_LEVEL", "warn")
	t.Setenv("HOOKRELAY_BREAKER_TIMEOUT", "1m")
	t.Setenv("HOOKRELAY_RATE_RPS", "2.5")
	t.Setenv("HOOKRELAY_CACHE_ENABLED", "false")
	t.Setenv("HOOKRELAY_MASTER_KEY", "k")

	loadEnv(&cfg)

	if cfg.Server.Port != "7070" {
		t.Errorf("expected port 7070, got %s", cfg.Server.Port)
	}
	if cfg.Postgres.DSN != "postgres://test:test@db:5432/test" {
		t.Errorf("expected test DSN, got %s", cfg.Postgres.DSN)
	}
	if cfg.NATS.URL != "nats://nats:4222" {
		t.Errorf("expected NATS URL, got %s", cfg.NATS.URL)
	}
	if cfg.Postgres.MaxConns != 25 {
		t.Errorf("expected max_conns 25, got %d", cfg.Postgres.MaxConns)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected log level warn, got %s", cfg.Logging.Level)
	}
	if cfg.Breaker.Timeout != time.Minute {
		t.Errorf("expected breaker timeout 1m, got %v", cfg.Breaker.Timeout)
	}
	if cfg.Rate.RequestsPerSecond != 2.5 {
		t.Errorf("expected rps 2.5, got %v", cfg.Rate.RequestsPerSecond)
	}
	if cfg.Cache.Enabled {
		t.Error("expected cache disabled")
	}
	if cfg.Secrets.MasterKey != "k" {
		t.Errorf("expected master key, got %q", cfg.Secrets.MasterKey)
	}
}

func TestEnvOverride_IgnoresMalformed(t *testing.T) {
	cfg := Defaults()
	t.Setenv("HOOKRELAY_PG_MAX_CONNS", "many")
	t.Setenv("HOOKRELAY_DELIVERY_TIMEOUT", "soon")

	loadEnv(&cfg)

	if cfg.Postgres.MaxConns != Defaults().Postgres.MaxConns {
		t.Errorf("malformed int should be ignored, got %d", cfg.Postgres.MaxConns)
	}
	if cfg.Delivery.Timeout != Defaults().Delivery.Timeout {
		t.Errorf("malformed duration should be ignored, got %v", cfg.Delivery.Timeout)
	}
}

func TestValidateRequired(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"empty port", func(c *Config) { c.Server.Port = "" }, "server.port is required"},
		{"zero body limit", func(c *Config) { c.Server.MaxBodyBytes = 0 }, "server.max_body_bytes must be >= 1"},
		{"empty DSN", func(c *Config) { c.Postgres.DSN = "" }, "postgres.dsn is required"},
		{"zero max_conns", func(c *Config) { c.Postgres.MaxConns = 0 }, "postgres.max_conns must be >= 1"},
		{"zero delivery timeout", func(c *Config) { c.Delivery.Timeout = 0 }, "delivery.timeout must be > 0"},
		{"zero delivery concurrency", func(c *Config) { c.Delivery.MaxConcurrent = 0 }, "delivery.max_concurrent must be >= 1"},
		{"zero breaker failures", func(c *Config) { c.Breaker.MaxFailures = 0 }, "breaker.max_failures must be >= 1"},
		{"zero rate", func(c *Config) { c.Rate.RequestsPerSecond = 0 }, "rate.requests_per_second must be > 0"},
		{"zero rate burst", func(c *Config) { c.Rate.Burst = 0 }, "rate.burst must be >= 1"},
		{"zero cache size", func(c *Config) { c.Cache.L1MaxSizeMB = 0 }, "cache.l1_max_size_mb must be >= 1"},
		{"sample rate", func(c *Config) { c.OTEL.SampleRate = 2 }, "otel.sample_rate must be within [0, 1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			err := validate(&cfg)
			if err == nil {
				t.Fatalf("expected error %q, got nil", tt.errMsg)
			}
			if err.Error() != tt.errMsg {
				t.Errorf("expected %q, got %q", tt.errMsg, err.Error())
			}
		})
	}
}

func TestValidate_CacheSizeIgnoredWhenDisabled(t *testing.T) {
	cfg := Defaults()
	cfg.Cache.Enabled = false
	cfg.Cache.L1MaxSizeMB = 0
	if err := validate(&cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadFrom_FullHierarchy(t *testing.T) {
	// YAML sets port=9090, env overrides to 7070. Env must win.
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(yamlPath, []byte(`
server:
  port: "9090"
logging:
  level: "debug"
breaker:
  max_failures: 9
`), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("HOOKRELAY_PORT", "7070")
	t.Setenv("HOOKRELAY_LOG_LEVEL", "warn")

	cfg, err := LoadFrom(yamlPath)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Server.Port != "7070" {
		t.Errorf("env should override YAML: got port %q, want 7070", cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("env should override YAML: got level %q, want warn", cfg.Logging.Level)
	}
	if cfg.Breaker.MaxFailures != 9 {
		t.Errorf("YAML should override defaults: got %d, want 9", cfg.Breaker.MaxFailures)
	}
}

func TestLoadFrom_ValidationError(t *testing.T) {
	t.Setenv("HOOKRELAY_RATE_BURST", "0")

	_, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil || !strings.Contains(err.Error(), "rate.burst") {
		t.Fatalf("expected validation error, got %v", err)
	}
}
