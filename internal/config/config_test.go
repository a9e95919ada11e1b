package config

import (
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/orders")
	t.Setenv("CALLBACK_SIGNATURE_SECRET", "0123456789abcdef0123456789abcdef")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Env != "development" || cfg.HTTPPort != "8080" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.IdempotencyTTL != 24*time.Hour {
		t.Fatalf("expected 24h TTL, got %s", cfg.IdempotencyTTL)
	}
	if cfg.RetryMaxAttempts != 3 || cfg.RetryBaseDelay != 100*time.Millisecond {
		t.Fatalf("unexpected retry defaults: %+v", cfg)
	}
	if cfg.BreakerFailureThreshold != 5 || cfg.BreakerRecoveryTimeout != 30*time.Second {
		t.Fatalf("unexpected breaker defaults: %+v", cfg)
	}
	if cfg.RedisEnabled || cfg.ArchiveEnabled {
		t.Fatal("redis and archiving default off")
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("HTTP_PORT", "9999")
	t.Setenv("IDEMPOTENCY_TTL", "1h")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("BREAKER_FAILURE_THRESHOLD", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPPort != "9999" || cfg.IdempotencyTTL != time.Hour {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if !cfg.RedisEnabled || cfg.BreakerFailureThreshold != 2 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoadRejectsMissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("CALLBACK_SIGNATURE_SECRET", "0123456789abcdef0123456789abcdef")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected DATABASE_URL error, got %v", err)
	}
}

func TestLoadRejectsShortCallbackSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/orders")
	t.Setenv("CALLBACK_SIGNATURE_SECRET", "short")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "CALLBACK_SIGNATURE_SECRET") {
		t.Fatalf("expected secret length error, got %v", err)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("IDEMPOTENCY_TTL", "not-a-duration")

	if _, err := Load(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidateTTLBounds(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("IDEMPOTENCY_TTL", "200h")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "IDEMPOTENCY_TTL") {
		t.Fatalf("expected TTL bound error, got %v", err)
	}
}

func TestArchiveRequiresCredentials(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("AUDIT_ARCHIVE_ENABLED", "true")
	t.Setenv("MINIO_ACCESS_KEY", "")
	t.Setenv("MINIO_SECRET_KEY", "")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "MINIO_ACCESS_KEY") {
		t.Fatalf("expected MinIO credential error, got %v", err)
	}
}
