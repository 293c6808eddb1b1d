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
const DefaultConfigFile = "arbiter.yaml"

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

	if err := loadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config env: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
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

// loadEnv overlays environment variables onto cfg. Only set, non-empty env
// values override. Malformed values fail the load rather than silently
// falling back to defaults; several of these gate auto-approval.
func loadEnv(cfg *Config) error {
	var errs []error
	add := func(err error) { errs = append(errs, err) }

	setString(&cfg.Server.Port, "ARBITER_PORT")
	setString(&cfg.Server.CORSOrigin, "ARBITER_CORS_ORIGIN")
	add(setFloat64(&cfg.Server.RateLimitRPS, "ARBITER_RATE_LIMIT_RPS"))
	add(setInt(&cfg.Server.RateLimitBurst, "ARBITER_RATE_LIMIT_BURST"))
	setString(&cfg.Server.IdempotencyBucket, "ARBITER_IDEMPOTENCY_BUCKET")
	add(setDuration(&cfg.Server.IdempotencyTTL, "ARBITER_IDEMPOTENCY_TTL"))
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	add(setInt32(&cfg.Postgres.MaxConns, "ARBITER_PG_MAX_CONNS"))
	add(setInt32(&cfg.Postgres.MinConns, "ARBITER_PG_MIN_CONNS"))
	add(setDuration(&cfg.Postgres.MaxConnLifetime, "ARBITER_PG_MAX_CONN_LIFETIME"))
	add(setDuration(&cfg.Postgres.MaxConnIdleTime, "ARBITER_PG_MAX_CONN_IDLE_TIME"))
	add(setDuration(&cfg.Postgres.HealthCheck, "ARBITER_PG_HEALTH_CHECK"))
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Logging.Level, "ARBITER_LOG_LEVEL")
	setString(&cfg.Logging.Service, "ARBITER_LOG_SERVICE")
	add(setBool(&cfg.Logging.Async, "ARBITER_LOG_ASYNC"))

	add(setBool(&cfg.Auth.Enabled, "ARBITER_AUTH_ENABLED"))
	setString(&cfg.Auth.JWTSecret, "ARBITER_JWT_SECRET")
	add(setDuration(&cfg.Auth.AccessTokenExpiry, "ARBITER_TOKEN_EXPIRY"))
	add(setInt(&cfg.Auth.BcryptCost, "ARBITER_BCRYPT_COST"))
	setString(&cfg.Auth.DefaultDirectorEmail, "ARBITER_DEFAULT_DIRECTOR_EMAIL")
	setString(&cfg.Auth.DefaultDirectorPass, "ARBITER_DEFAULT_DIRECTOR_PASS")

	add(setBool(&cfg.Telemetry.Enabled, "ARBITER_OTEL_ENABLED"))
	setString(&cfg.Telemetry.Endpoint, "ARBITER_OTEL_ENDPOINT")

	add(setInt64(&cfg.Cache.L1MaxSizeMB, "ARBITER_CACHE_L1_SIZE_MB"))
	setString(&cfg.Cache.L2Bucket, "ARBITER_CACHE_L2_BUCKET")
	add(setDuration(&cfg.Cache.L2TTL, "ARBITER_CACHE_L2_TTL"))
	add(setDuration(&cfg.Cache.DirectoryTTL, "ARBITER_DIRECTORY_CACHE_TTL"))

	add(setInt64(&cfg.Notify.MaxConcurrent, "ARBITER_NOTIFY_MAX_CONCURRENT"))
	add(setInt(&cfg.Breaker.MaxFailures, "ARBITER_BREAKER_MAX_FAILURES"))
	add(setDuration(&cfg.Breaker.Timeout, "ARBITER_BREAKER_TIMEOUT"))

	add(setFloat64(&cfg.Oversight.AutoApproveThreshold, "ARBITER_AUTO_APPROVE_THRESHOLD"))
	add(setFloat64(&cfg.Oversight.LowConfidenceFloor, "ARBITER_LOW_CONFIDENCE_FLOOR"))
	add(setFloat64(&cfg.Oversight.AutomaticFloor, "ARBITER_AUTOMATIC_FLOOR"))
	add(setFloat64(&cfg.Oversight.CriticalValueUSD, "ARBITER_CRITICAL_VALUE_USD"))

	return errors.Join(errs...)
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Auth.Enabled && cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required when auth is enabled")
	}
	if cfg.Server.RateLimitRPS > 0 && cfg.Server.RateLimitBurst < 1 {
		return errors.New("server.rate_limit_burst must be >= 1 when rate limiting is enabled")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Oversight.LowConfidenceFloor < 0 || cfg.Oversight.LowConfidenceFloor > 1 {
		return errors.New("oversight.low_confidence_floor must be in [0,1]")
	}
	if cfg.Oversight.AutomaticFloor < 0 || cfg.Oversight.AutomaticFloor > 1 {
		return errors.New("oversight.automatic_floor must be in [0,1]")
	}
	if cfg.Oversight.AutoApproveThreshold < 0 || cfg.Oversight.AutoApproveThreshold > 1 {
		return errors.New("oversight.auto_approve_threshold must be in [0,1]")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setInt32(dst *int32, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = int32(n)
	return nil
}

func setInt64(dst *int64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setFloat64(dst *float64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
