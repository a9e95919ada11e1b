package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env      string
	HTTPPort string
	LogLevel string

	DatabaseURL string

	RedisEnabled bool
	RedisURL     string

	IdempotencyTTL time.Duration

	CallbackSignatureSecret string
	CallbackRateLimitPerMin int

	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration

	BreakerFailureThreshold int
	BreakerRecoveryTimeout  time.Duration

	PaymentTimeout   time.Duration
	InventoryTimeout time.Duration
	LoyaltyTimeout   time.Duration

	ArchiveEnabled  bool
	MinIOEndpoint   string
	MinIOAccessKey  string
	MinIOSecretKey  string
	MinIOBucket     string
	MinIOUseSSL     bool
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:                     getEnv("APP_ENV", "development"),
		HTTPPort:                getEnv("HTTP_PORT", "8080"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		DatabaseURL:             os.Getenv("DATABASE_URL"),
		RedisEnabled:            getEnvBool("REDIS_ENABLED", false),
		RedisURL:                getEnv("REDIS_URL", "redis://localhost:6379/0"),
		CallbackSignatureSecret: os.Getenv("CALLBACK_SIGNATURE_SECRET"),
		CallbackRateLimitPerMin: getEnvInt("CALLBACK_RATE_LIMIT_PER_MIN", 120),
		RetryMaxAttempts:        getEnvInt("RETRY_MAX_ATTEMPTS", 3),
		BreakerFailureThreshold: getEnvInt("BREAKER_FAILURE_THRESHOLD", 5),
		ArchiveEnabled:          getEnvBool("AUDIT_ARCHIVE_ENABLED", false),
		MinIOEndpoint:           getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinIOAccessKey:          os.Getenv("MINIO_ACCESS_KEY"),
		MinIOSecretKey:          os.Getenv("MINIO_SECRET_KEY"),
		MinIOBucket:             getEnv("MINIO_AUDIT_BUCKET", "audit-archive"),
		MinIOUseSSL:             getEnvBool("MINIO_USE_SSL", false),
	}

	for _, d := range []struct {
		dst *time.Duration
		key string
		def string
	}{
		{&cfg.IdempotencyTTL, "IDEMPOTENCY_TTL", "24h"},
		{&cfg.RetryBaseDelay, "RETRY_BASE_DELAY", "100ms"},
		{&cfg.RetryMaxDelay, "RETRY_MAX_DELAY", "10s"},
		{&cfg.BreakerRecoveryTimeout, "BREAKER_RECOVERY_TIMEOUT", "30s"},
		{&cfg.PaymentTimeout, "PAYMENT_TIMEOUT", "30s"},
		{&cfg.InventoryTimeout, "INVENTORY_TIMEOUT", "5s"},
		{&cfg.LoyaltyTimeout, "LOYALTY_TIMEOUT", "5s"},
	} {
		v, err := time.ParseDuration(getEnv(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string
	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if len(c.CallbackSignatureSecret) < 16 {
		errs = append(errs, "CALLBACK_SIGNATURE_SECRET must be at least 16 chars")
	}
	if c.IdempotencyTTL <= 0 || c.IdempotencyTTL > 7*24*time.Hour {
		errs = append(errs, "IDEMPOTENCY_TTL must be between 1s and 7d")
	}
	if c.RetryMaxAttempts < 1 {
		errs = append(errs, "RETRY_MAX_ATTEMPTS must be >= 1")
	}
	if c.RetryBaseDelay <= 0 || c.RetryMaxDelay < c.RetryBaseDelay {
		errs = append(errs, "RETRY_MAX_DELAY must be >= RETRY_BASE_DELAY > 0")
	}
	if c.BreakerFailureThreshold < 1 {
		errs = append(errs, "BREAKER_FAILURE_THRESHOLD must be >= 1")
	}
	if c.BreakerRecoveryTimeout <= 0 {
		errs = append(errs, "BREAKER_RECOVERY_TIMEOUT must be > 0")
	}
	if c.CallbackRateLimitPerMin <= 0 {
		errs = append(errs, "CALLBACK_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.ArchiveEnabled && (c.MinIOAccessKey == "" || c.MinIOSecretKey == "") {
		errs = append(errs, "MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when AUDIT_ARCHIVE_ENABLED")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
