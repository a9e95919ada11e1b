package database

import (
	"gorm.io/gorm"

	"github.com/riddhij0804/EY-CodeCrafters-sub000/internal/domain"
)

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.Order{},
		&domain.PaymentTransaction{},
		&domain.RefundRecord{},
		&domain.IdempotencyRecord{},
		&domain.SagaTransaction{},
		&domain.AuditLogEntry{},
	); err != nil {
		return err
	}
	// One SUCCESS row per order, enforced by the engine. The conditional
	// UPDATE in the payment repository is the fast path; under READ
	// COMMITTED its NOT EXISTS guard cannot see a concurrent writer on a
	// different row of the same order, so the index has the final word.
	// Partial index syntax is shared by postgres and sqlite.
	return db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_payment_one_success_per_order
		ON payment_transactions (order_id) WHERE status = 'SUCCESS'`).Error
}
