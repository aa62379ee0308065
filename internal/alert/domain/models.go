// Package domain defines operational alerts raised from completed batch
// summaries.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/freightauditlabs/freightaudit/internal/audit/domain"
	batchdomain "github.com/freightauditlabs/freightaudit/internal/batch/domain"
	"gorm.io/gorm"
)

var ErrAlertNotFound = errors.New("alert_not_found")

type AlertType string

const (
	AlertHighOverchargeRate      AlertType = "high_overcharge_rate"
	AlertModerateOverchargeRate  AlertType = "moderate_overcharge_rate"
	AlertLargeAbsoluteOvercharge AlertType = "large_absolute_overcharge"
	AlertMultipleCritical        AlertType = "multiple_critical"
	AlertDuplicateAWBs           AlertType = "duplicate_awbs"
)

type Alert struct {
	ID           snowflake.ID         `gorm:"primaryKey" json:"id"`
	BatchID      snowflake.ID         `gorm:"not null;index" json:"batch_id"`
	ProviderName string               `gorm:"type:text;not null" json:"provider_name"`
	Type         AlertType            `gorm:"type:text;not null" json:"alert_type"`
	Severity     auditdomain.Severity `gorm:"type:text;not null" json:"severity"`
	Title        string               `gorm:"type:text;not null" json:"title"`
	Message      string               `gorm:"type:text;not null" json:"message"`
	IsRead       bool                 `gorm:"not null;default:false;index" json:"is_read"`
	CreatedAt    time.Time            `json:"created_at"`
}

func (Alert) TableName() string { return "alerts" }

type ListRequest struct {
	UnreadOnly bool
	BatchID    string
}

type Service interface {
	// GenerateForBatch derives alerts from a completed batch summary and
	// persists them. A batch with a healthy summary yields none.
	GenerateForBatch(ctx context.Context, batch *batchdomain.Batch) ([]Alert, error)
	List(ctx context.Context, req ListRequest) ([]Alert, error)
	MarkRead(ctx context.Context, id string) (Alert, error)
	// MarkAllRead flips every unread alert in one statement and reports how
	// many changed.
	MarkAllRead(ctx context.Context) (int64, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, alerts []Alert) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Alert, error)
	List(ctx context.Context, db *gorm.DB, req ListRequest) ([]Alert, error)
	MarkRead(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
	MarkAllRead(ctx context.Context, db *gorm.DB) (int64, error)
}
