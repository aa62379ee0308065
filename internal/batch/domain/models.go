// Package domain defines the audit batch aggregate: its lifecycle, the
// roll-up summary computed when a batch completes, and the repository and
// service contracts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type BatchStatus string

const (
	BatchPending    BatchStatus = "pending"
	BatchProcessing BatchStatus = "processing"
	BatchCompleted  BatchStatus = "completed"
	BatchFailed     BatchStatus = "failed"
)

// batchTransitions is the allowed edge set of the batch lifecycle. Terminal
// statuses have no outgoing edges; re-asserting a terminal status is treated
// as an idempotent no-op by the service, not as a transition.
var batchTransitions = map[BatchStatus][]BatchStatus{
	BatchPending:    {BatchProcessing, BatchFailed},
	BatchProcessing: {BatchCompleted, BatchFailed},
}

func (s BatchStatus) Terminal() bool {
	return s == BatchCompleted || s == BatchFailed
}

func (s BatchStatus) CanTransitionTo(next BatchStatus) bool {
	for _, allowed := range batchTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Summary is the aggregate computed from a completed batch. It is stored
// denormalized on the batch row so list endpoints and the analytics fold
// never need to re-scan line items.
type Summary struct {
	TotalInvoices      int     `json:"total_invoices"`
	SkippedRows        int     `json:"skipped_rows"`
	TotalDiscrepancies int     `json:"total_discrepancies"`
	TotalBilled        float64 `json:"total_billed"`
	TotalOvercharge    float64 `json:"total_overcharge"`
	// OverchargeRate is TotalOvercharge over TotalBilled as a percentage,
	// zero when nothing was billed.
	OverchargeRate float64 `json:"overcharge_rate"`

	SeverityCounts      map[string]int     `json:"severity_counts"`
	CheckTypeCounts     map[string]int     `json:"check_type_counts"`
	CheckTypeOvercharge map[string]float64 `json:"check_type_overcharge"`
}

type Batch struct {
	ID           snowflake.ID                 `gorm:"primaryKey" json:"id"`
	Provider     string                       `gorm:"type:text;not null;index" json:"provider"`
	Status       BatchStatus                  `gorm:"type:text;not null;index" json:"status"`
	ErrorMessage *string                      `gorm:"type:text" json:"error_message,omitempty"`
	Summary      datatypes.JSONType[*Summary] `json:"summary"`
	ProcessedAt  *time.Time                   `json:"processed_at,omitempty"`
	CreatedAt    time.Time                    `json:"created_at"`
	UpdatedAt    time.Time                    `json:"updated_at"`
}

func (Batch) TableName() string { return "audit_batches" }
