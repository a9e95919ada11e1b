package di

import (
	"testing"
	"time"

	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/config"
	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/service"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:                     "test",
		HTTPPort:                "8080",
		LogLevel:                "error",
		DatabaseURL:             "postgres://localhost:5432/orders",
		RedisURL:                "redis://localhost:6379/0",
		IdempotencyTTL:          24 * time.Hour,
		CallbackSignatureSecret: "0123456789abcdef0123456789abcdef",
		CallbackRateLimitPerMin: 120,
		RetryMaxAttempts:        3,
		RetryBaseDelay:          100 * time.Millisecond,
		RetryMaxDelay:           10 * time.Second,
		BreakerFailureThreshold: 5,
		BreakerRecoveryTimeout:  30 * time.Second,
		PaymentTimeout:          30 * time.Second,
		InventoryTimeout:        5 * time.Second,
		LoyaltyTimeout:          5 * time.Second,
	}
}

func TestProvideHTTPServer(t *testing.T) {
	cfg := testConfig()
	cfg.HTTPPort = "9090"

	srv := provideHTTPServer(cfg, nil)
	if srv.Addr != ":9090" {
		t.Fatalf("unexpected addr %q", srv.Addr)
	}
	if srv.ReadTimeout != 10*time.Second || srv.WriteTimeout != 30*time.Second {
		t.Fatalf("unexpected timeouts: read=%s write=%s", srv.ReadTimeout, srv.WriteTimeout)
	}
}

func TestProvideRetryPolicyFromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.RetryMaxAttempts = 7
	cfg.RetryBaseDelay = 50 * time.Millisecond

	policy := provideRetryPolicy(cfg)
	if policy.MaxAttempts != 7 || policy.BaseDelay != 50*time.Millisecond {
		t.Fatalf("unexpected policy: %+v", policy)
	}
	if policy.Multiplier != 2.0 {
		t.Fatalf("expected multiplier 2.0, got %f", policy.Multiplier)
	}
}

func TestProvideTimeoutManagerFromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.PaymentTimeout = time.Minute

	tm := provideTimeoutManager(cfg)
	if got := tm.TimeoutFor("payment"); got != time.Minute {
		t.Fatalf("payment timeout: got %s", got)
	}
	if got := tm.TimeoutFor("inventory"); got != 5*time.Second {
		t.Fatalf("inventory timeout: got %s", got)
	}
}

func TestProvideAuditArchiverDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.ArchiveEnabled = false

	archiver, err := provideAuditArchiver(cfg)
	if err != nil {
		t.Fatalf("provide: %v", err)
	}
	if archiver != nil {
		t.Fatal("archiver must be nil when archiving is off")
	}
}

func TestProvideCallbackLimiterLocalByDefault(t *testing.T) {
	cfg := testConfig()
	cfg.RedisEnabled = false

	limiter, err := provideCallbackLimiter(cfg)
	if err != nil {
		t.Fatalf("provide: %v", err)
	}
	if limiter == nil {
		t.Fatal("expected a local limiter")
	}
}

func TestProvideIdempotencyStoreSelection(t *testing.T) {
	cfg := testConfig()

	cfg.RedisEnabled = false
	store, err := provideIdempotencyStore(cfg, nil)
	if err != nil {
		t.Fatalf("provide db store: %v", err)
	}
	if _, ok := store.(*service.DBIdempotencyStore); !ok {
		t.Fatalf("expected database store, got %T", store)
	}

	cfg.RedisEnabled = true
	store, err = provideIdempotencyStore(cfg, nil)
	if err != nil {
		t.Fatalf("provide redis store: %v", err)
	}
	if _, ok := store.(*service.RedisIdempotencyStore); !ok {
		t.Fatalf("expected redis store, got %T", store)
	}
}

func TestProvideRedisClientRejectsBadURL(t *testing.T) {
	cfg := testConfig()
	cfg.RedisURL = "not-a-url"

	if _, err := provideRedisClient(cfg); err == nil {
		t.Fatal("expected parse error")
	}
}
