package domain

import (
	"context"
	"io"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/freightauditlabs/freightaudit/internal/audit/domain"
	"gorm.io/gorm"
)

type CreateRequest struct {
	Provider string
}

// ProcessRequest drives a pending batch through evaluation. Invoice and
// Contract are raw CSV streams; Provider overrides detection when set.
type ProcessRequest struct {
	ID       string
	Provider string
	Invoice  io.Reader
	Contract io.Reader
}

// SubmitRequest is Create followed by Process in one call.
type SubmitRequest struct {
	Provider string
	Invoice  io.Reader
	Contract io.Reader
}

type GetRequest struct {
	ID string
}

type ListRequest struct {
	Offset int
	Limit  int
}

type ListResult struct {
	Batches []Batch `json:"batches"`
	Total   int64   `json:"total"`
}

// DiscrepancyFilter narrows a batch discrepancy listing. Empty fields match
// everything.
type DiscrepancyFilter struct {
	CheckType     string
	Severity      string
	DisputeStatus string
}

type DiscrepanciesRequest struct {
	BatchID string
	Filter  DiscrepancyFilter
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (Batch, error)
	Process(ctx context.Context, req ProcessRequest) (Batch, error)
	Submit(ctx context.Context, req SubmitRequest) (Batch, error)
	Get(ctx context.Context, req GetRequest) (Batch, error)
	List(ctx context.Context, req ListRequest) (ListResult, error)
	Discrepancies(ctx context.Context, req DiscrepanciesRequest) ([]auditdomain.Discrepancy, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, batch *Batch) error
	// UpdateStatusCAS writes batch's status, error message, summary and
	// processed-at guarded by the expected current status. Returns false
	// when the guard did not match.
	UpdateStatusCAS(ctx context.Context, db *gorm.DB, batch *Batch, from BatchStatus) (bool, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Batch, error)
	ListPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]Batch, int64, error)
	// ListCompletedPage pages completed batches oldest-first for the
	// analytics fold.
	ListCompletedPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]Batch, error)

	InsertLineItems(ctx context.Context, db *gorm.DB, items []auditdomain.LineItem) error
	InsertDiscrepancies(ctx context.Context, db *gorm.DB, discrepancies []auditdomain.Discrepancy) error
	ListDiscrepancies(ctx context.Context, db *gorm.DB, batchID snowflake.ID, filter DiscrepancyFilter) ([]auditdomain.Discrepancy, error)
}
