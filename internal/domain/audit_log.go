package domain

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLogEntry is append-only. Entries are never updated or deleted by
// the application; retention is a deployment concern.
type AuditLogEntry struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	LogID        string         `gorm:"size:64;not null;uniqueIndex" json:"log_id"`
	Timestamp    time.Time      `gorm:"not null;index" json:"timestamp"`
	Service      string         `gorm:"size:64;not null;index" json:"service"`
	Action       string         `gorm:"size:64;not null;index" json:"action"`
	ResourceType string         `gorm:"size:64;not null" json:"resource_type"`
	ResourceID   string         `gorm:"size:64;not null;index" json:"resource_id"`
	UserID       string         `gorm:"size:64;index" json:"user_id,omitempty"`
	Status       string         `gorm:"size:32;not null" json:"status"`
	Details      datatypes.JSON `json:"details,omitempty"`
}
