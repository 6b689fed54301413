package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "hookrelay.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is supplied by the operator
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "HOOKRELAY_PORT")
	setInt64(&cfg.Server.MaxBodyBytes, "HOOKRELAY_MAX_BODY_BYTES")
	setDuration(&cfg.Server.ReadTimeout, "HOOKRELAY_READ_TIMEOUT")
	setDuration(&cfg.Server.WriteTimeout, "HOOKRELAY_WRITE_TIMEOUT")
	setDuration(&cfg.Server.ShutdownTimeout, "HOOKRELAY_SHUTDOWN_TIMEOUT")
	setString(&cfg.Server.AdminToken, "HOOKRELAY_ADMIN_TOKEN")
	setString(&cfg.Server.PublicURL, "HOOKRELAY_PUBLIC_URL")

	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "HOOKRELAY_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "HOOKRELAY_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "HOOKRELAY_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "HOOKRELAY_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "HOOKRELAY_PG_HEALTH_CHECK")

	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.NATS.AuditSubject, "HOOKRELAY_AUDIT_SUBJECT")
	setString(&cfg.NATS.AuditStream, "HOOKRELAY_AUDIT_STREAM")

	setString(&cfg.Logging.Level, "HOOKRELAY_LOG_LEVEL")
	setString(&cfg.Logging.Service, "HOOKRELAY_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "HOOKRELAY_LOG_ASYNC")

	setDuration(&cfg.Delivery.Timeout, "HOOKRELAY_DELIVERY_TIMEOUT")
	setString(&cfg.Delivery.AllowedPrefix, "HOOKRELAY_DELIVERY_ALLOWED_PREFIX")
	setInt(&cfg.Delivery.MaxConcurrent, "HOOKRELAY_DELIVERY_MAX_CONCURRENT")

	setInt(&cfg.Breaker.MaxFailures, "HOOKRELAY_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "HOOKRELAY_BREAKER_TIMEOUT")

	setFloat64(&cfg.Rate.RequestsPerSecond, "HOOKRELAY_RATE_RPS")
	setInt(&cfg.Rate.Burst, "HOOKRELAY_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "HOOKRELAY_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "HOOKRELAY_RATE_MAX_IDLE_TIME")

	// Cache
	setBool(&cfg.Cache.Enabled, "HOOKRELAY_CACHE_ENABLED")
	setInt64(&cfg.Cache.L1MaxSizeMB, "HOOKRELAY_CACHE_L1_SIZE_MB")
	setDuration(&cfg.Cache.TTL, "HOOKRELAY_CACHE_TTL")
	setString(&cfg.Cache.L2Bucket, "HOOKRELAY_CACHE_L2_BUCKET")

	// OpenTelemetry
	setBool(&cfg.OTEL.Enabled, "HOOKRELAY_OTEL_ENABLED")
	setString(&cfg.OTEL.Endpoint, "HOOKRELAY_OTEL_ENDPOINT")
	setBool(&cfg.OTEL.Insecure, "HOOKRELAY_OTEL_INSECURE")
	setString(&cfg.OTEL.ServiceName, "HOOKRELAY_OTEL_SERVICE_NAME")
	setFloat64(&cfg.OTEL.SampleRate, "HOOKRELAY_OTEL_SAMPLE_RATE")

	setString(&cfg.Secrets.MasterKey, "HOOKRELAY_MASTER_KEY")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Server.MaxBodyBytes < 1 {
		return errors.New("server.max_body_bytes must be >= 1")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Delivery.Timeout <= 0 {
		return errors.New("delivery.timeout must be > 0")
	}
	if cfg.Delivery.MaxConcurrent < 1 {
		return errors.New("delivery.max_concurrent must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.RequestsPerSecond <= 0 {
		return errors.New("rate.requests_per_second must be > 0")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	if cfg.Cache.Enabled && cfg.Cache.L1MaxSizeMB < 1 {
		return errors.New("cache.l1_max_size_mb must be >= 1")
	}
	if cfg.OTEL.SampleRate < 0 || cfg.OTEL.SampleRate > 1 {
		return errors.New("otel.sample_rate must be within [0, 1]")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
