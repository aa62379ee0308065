// Package domain defines the dispute lifecycle layered over discrepancies.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/freightauditlabs/freightaudit/internal/audit/domain"
	"gorm.io/gorm"
)

var (
	ErrDiscrepancyNotFound = errors.New("discrepancy_not_found")
	ErrInvalidDiscrepancy  = errors.New("invalid_discrepancy")
	ErrInvalidTransition   = errors.New("invalid_dispute_transition")
)

// disputeTransitions is the allowed edge set. Resolved and rejected are
// terminal.
var disputeTransitions = map[auditdomain.DisputeStatus][]auditdomain.DisputeStatus{
	auditdomain.DisputePending:      {auditdomain.DisputeRaised},
	auditdomain.DisputeRaised:       {auditdomain.DisputeAcknowledged, auditdomain.DisputeRejected},
	auditdomain.DisputeAcknowledged: {auditdomain.DisputeResolved, auditdomain.DisputeRejected},
}

func CanTransition(from, to auditdomain.DisputeStatus) bool {
	for _, allowed := range disputeTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

type TransitionRequest struct {
	DiscrepancyID string
	Status        auditdomain.DisputeStatus
	Notes         string
}

// BulkRaiseRequest raises every still-pending discrepancy of a batch in one
// statement.
type BulkRaiseRequest struct {
	BatchID string
	Notes   string
}

type ListRequest struct {
	Status auditdomain.DisputeStatus
	Offset int
	Limit  int
}

type Service interface {
	Get(ctx context.Context, id string) (auditdomain.Discrepancy, error)
	Transition(ctx context.Context, req TransitionRequest) (auditdomain.Discrepancy, error)
	BulkRaise(ctx context.Context, req BulkRaiseRequest) (int64, error)
	List(ctx context.Context, req ListRequest) ([]auditdomain.Discrepancy, error)
}

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*auditdomain.Discrepancy, error)
	// UpdateStatusCAS flips dispute status guarded by the expected current
	// status. Returns false when the guard did not match.
	UpdateStatusCAS(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to auditdomain.DisputeStatus, notes *string, at time.Time) (bool, error)
	// RaisePending raises every pending discrepancy of the batch and
	// reports how many rows changed.
	RaisePending(ctx context.Context, db *gorm.DB, batchID snowflake.ID, notes *string, at time.Time) (int64, error)
	ListByStatus(ctx context.Context, db *gorm.DB, status auditdomain.DisputeStatus, offset, limit int) ([]auditdomain.Discrepancy, error)
}
