package service

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/domain"
)

// TranslateError is required so the unique-index race surfaces as
// gorm.ErrDuplicatedKey, same as in production.
func newServiceDBForTest(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// AutoMigrate without the one-SUCCESS-per-order partial index: some
	// tests seed anomalous duplicate SUCCESS rows that the production
	// schema forbids, to exercise the detection paths.
	if err := db.AutoMigrate(
		&domain.Order{},
		&domain.PaymentTransaction{},
		&domain.RefundRecord{},
		&domain.IdempotencyRecord{},
		&domain.SagaTransaction{},
		&domain.AuditLogEntry{},
	); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	return db
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
