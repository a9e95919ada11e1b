package di

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/app"
	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/config"
	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/database"
	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/http/handler"
	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/http/middleware"
	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/http/router"
	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/observability"
	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/repository"
	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/service"
)

var ConfigSet = wire.NewSet(config.Load)

var ObservabilitySet = wire.NewSet(provideLogger)

var RuntimeInfraSet = wire.NewSet(provideOpenDB)

var RepositorySet = wire.NewSet(
	repository.NewOrderRepository,
	repository.NewPaymentRepository,
	repository.NewRefundRepository,
	repository.NewSagaRepository,
	repository.NewAuditRepository,
)

var ServiceSet = wire.NewSet(
	service.NewStateMachine,
	service.NewOrderStateService,
	provideIdempotencyStore,
	provideIdempotencyLedger,
	service.NewPaymentIdempotencyValidator,
	service.NewAuditLogger,
	service.NewPaymentSafetyManager,
	service.NewRefundManager,
	service.NewTransactionManager,
	provideRetryPolicy,
	provideTimeoutManager,
	provideInventoryService,
	provideLoyaltyService,
	providePaymentGateway,
	provideFailureOrchestrator,
	provideCheckoutService,
)

var HTTPSet = wire.NewSet(
	handler.NewOrderHandler,
	providePaymentHandler,
	handler.NewRefundHandler,
	handler.NewFailureHandler,
	provideAuditArchiver,
	handler.NewAuditHandler,
	handler.NewHealthHandler,
	provideCallbackLimiter,
	provideRouterDependencies,
	router.New,
	provideHTTPServer,
)

var AppSet = wire.NewSet(app.New)

func provideLogger(cfg *config.Config) *slog.Logger {
	return observability.NewLogger(cfg.Env, cfg.LogLevel)
}

func provideOpenDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func provideRedisClient(cfg *config.Config) (redis.UniversalClient, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// provideIdempotencyStore prefers Redis when it is enabled; the database
// store is the durable default.
func provideIdempotencyStore(cfg *config.Config, db *gorm.DB) (service.IdempotencyStore, error) {
	if cfg.RedisEnabled {
		client, err := provideRedisClient(cfg)
		if err != nil {
			return nil, err
		}
		return service.NewRedisIdempotencyStore(client, "idem"), nil
	}
	return service.NewDBIdempotencyStore(db), nil
}

func provideIdempotencyLedger(store service.IdempotencyStore, logger *slog.Logger, cfg *config.Config) *service.IdempotencyLedger {
	return service.NewIdempotencyLedger(store, logger, cfg.IdempotencyTTL)
}

func provideRetryPolicy(cfg *config.Config) service.RetryPolicy {
	return service.RetryPolicy{
		MaxAttempts: cfg.RetryMaxAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
		MaxDelay:    cfg.RetryMaxDelay,
		Multiplier:  2.0,
	}
}

func provideTimeoutManager(cfg *config.Config) *service.TimeoutManager {
	return service.NewTimeoutManager(map[string]time.Duration{
		"payment":   cfg.PaymentTimeout,
		"inventory": cfg.InventoryTimeout,
		"loyalty":   cfg.LoyaltyTimeout,
	})
}

func provideInventoryService() service.InventoryService {
	return service.NewStaticInventoryService(nil)
}

func provideLoyaltyService() service.LoyaltyService {
	return service.NewInMemoryLoyaltyService()
}

func providePaymentGateway() service.PaymentGateway {
	return service.NewNoopPaymentGateway()
}

func provideFailureOrchestrator(
	states *service.OrderStateService,
	refunds *service.RefundManager,
	inventory service.InventoryService,
	loyalty service.LoyaltyService,
	gateway service.PaymentGateway,
	audit *service.AuditLogger,
	logger *slog.Logger,
) *service.FailureOrchestrator {
	return service.NewFailureOrchestrator(
		service.NewInventoryFailureHandler(inventory, refunds, loyalty, logger),
		service.NewPaymentFailureHandler(refunds, logger),
		service.NewCancellationFailureHandler(states, refunds, inventory, gateway, logger),
		service.NewDeliveryFailureHandler(refunds, logger),
		audit,
		logger,
	)
}

func provideCheckoutService(
	orders repository.OrderRepository,
	states *service.OrderStateService,
	inventory service.InventoryService,
	payments *service.PaymentSafetyManager,
	ledger *service.IdempotencyLedger,
	sagas *service.TransactionManager,
	retry service.RetryPolicy,
	timeouts *service.TimeoutManager,
	cfg *config.Config,
	logger *slog.Logger,
) *service.CheckoutService {
	breaker := service.NewCircuitBreaker("inventory",
		cfg.BreakerFailureThreshold, cfg.BreakerRecoveryTimeout, logger)
	return service.NewCheckoutService(orders, states, inventory, payments, ledger, sagas, retry, timeouts, breaker, logger)
}

// provideAuditArchiver returns a nil archiver when archiving is off; the
// audit handler answers 503 for archive requests in that case.
func provideAuditArchiver(cfg *config.Config) (service.AuditArchiver, error) {
	if !cfg.ArchiveEnabled {
		return nil, nil
	}
	return service.NewMinIOAuditArchiver(
		cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey,
		cfg.MinIOBucket, cfg.MinIOUseSSL)
}

func providePaymentHandler(
	payments *service.PaymentSafetyManager,
	validator *service.PaymentIdempotencyValidator,
	states *service.OrderStateService,
	cfg *config.Config,
) *handler.PaymentHandler {
	return handler.NewPaymentHandler(payments, validator, states, cfg.CallbackSignatureSecret)
}

func provideRouterDependencies(
	orders *handler.OrderHandler,
	payments *handler.PaymentHandler,
	refunds *handler.RefundHandler,
	failures *handler.FailureHandler,
	audit *handler.AuditHandler,
	health *handler.HealthHandler,
	store service.IdempotencyStore,
	limiter middleware.Limiter,
	cfg *config.Config,
	logger *slog.Logger,
) router.Dependencies {
	return router.Dependencies{
		Orders:   orders,
		Payments: payments,
		Refunds:  refunds,
		Failures: failures,
		Audit:    audit,
		Health:   health,
		CheckoutIdempotency: middleware.NewIdempotency(
			store, "http-checkout", cfg.IdempotencyTTL, logger),
		CallbackRateLimiter: middleware.NewRateLimiter(
			limiter, cfg.CallbackRateLimitPerMin, time.Minute,
			middleware.FailClosed, "callback", nil),
	}
}

// provideCallbackLimiter shares the window across instances when Redis is
// on; otherwise each instance counts locally.
func provideCallbackLimiter(cfg *config.Config) (middleware.Limiter, error) {
	if cfg.RedisEnabled {
		client, err := provideRedisClient(cfg)
		if err != nil {
			return nil, err
		}
		return middleware.NewRedisFixedWindowLimiter(client, "rl"), nil
	}
	return middleware.NewLocalFixedWindowLimiter(), nil
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      h,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// MigrationRunner runs schema migration and exits; used by the migrate
// subcommand.
type MigrationRunner struct {
	db *gorm.DB
}

func NewMigrationRunner(db *gorm.DB) *MigrationRunner {
	return &MigrationRunner{db: db}
}

func (m *MigrationRunner) Run() error {
	return database.Migrate(m.db)
}
