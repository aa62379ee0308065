package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/bwmarrin/snowflake"
	alertdomain "github.com/freightauditlabs/freightaudit/internal/alert/domain"
	analyticsdomain "github.com/freightauditlabs/freightaudit/internal/analytics/domain"
	auditdomain "github.com/freightauditlabs/freightaudit/internal/audit/domain"
	"github.com/freightauditlabs/freightaudit/internal/batch/domain"
	"github.com/freightauditlabs/freightaudit/internal/clock"
	"github.com/freightauditlabs/freightaudit/internal/ingest"
	"github.com/freightauditlabs/freightaudit/internal/observability"
	"github.com/freightauditlabs/freightaudit/internal/ratecard"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	evaluator auditdomain.Evaluator
	metrics   *observability.Metrics

	alertSvc  alertdomain.Service
	analytics analyticsdomain.Invalidator
}

type ServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Evaluator auditdomain.Evaluator
	Metrics   *observability.Metrics

	AlertSvc  alertdomain.Service         `optional:"true"`
	Analytics analyticsdomain.Invalidator `optional:"true"`
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("batch.service"),

		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		evaluator: p.Evaluator,
		metrics:   p.Metrics,

		alertSvc:  p.AlertSvc,
		analytics: p.Analytics,
	}
}

// Create implements domain.Service.
func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.Batch, error) {
	provider := req.Provider
	if provider == "" {
		provider = "Unknown"
	}

	batch := domain.Batch{
		ID:       s.genID.Generate(),
		Provider: provider,
		Status:   domain.BatchPending,
	}
	if err := s.repo.Insert(ctx, s.db, &batch); err != nil {
		return domain.Batch{}, err
	}

	s.log.Info("batch created",
		zap.String("batch_id", batch.ID.String()),
		zap.String("provider", batch.Provider))
	return batch, nil
}

// Process implements domain.Service. Evaluation failures are recorded on the
// batch as a failed terminal status, not returned as errors; only lookup,
// transition and storage errors surface to the caller.
func (s *Service) Process(ctx context.Context, req domain.ProcessRequest) (domain.Batch, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Batch{}, err
	}

	batch, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Batch{}, err
	}
	if batch == nil {
		return domain.Batch{}, domain.ErrBatchNotFound
	}
	if batch.Status.Terminal() {
		// Re-processing a finished batch is a no-op.
		return *batch, nil
	}

	if err := s.transition(ctx, nil, batch, domain.BatchProcessing); err != nil {
		return domain.Batch{}, err
	}

	items, skipped, index, provider, err := s.prepare(batch, req)
	if err != nil {
		return s.fail(ctx, batch, err), nil
	}
	if provider != "" {
		batch.Provider = provider
	}

	for i := range items {
		items[i].ID = s.genID.Generate()
		items[i].BatchID = batch.ID
	}

	start := time.Now()
	discrepancies := s.evaluator.Evaluate(ctx, items, index)
	s.metrics.EvaluationSeconds.Observe(time.Since(start).Seconds())

	now := s.clock.Now(ctx)
	for i := range discrepancies {
		discrepancies[i].ID = s.genID.Generate()
		discrepancies[i].BatchID = batch.ID
		discrepancies[i].CreatedAt = now
	}

	batch.Summary = datatypes.NewJSONType(BuildSummary(items, skipped, discrepancies))
	batch.ProcessedAt = &now

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertLineItems(ctx, tx, items); err != nil {
			return err
		}
		if err := s.repo.InsertDiscrepancies(ctx, tx, discrepancies); err != nil {
			return err
		}
		return s.transition(ctx, tx, batch, domain.BatchCompleted)
	})
	if err != nil {
		return domain.Batch{}, err
	}

	s.metrics.BatchesProcessed.WithLabelValues(string(domain.BatchCompleted)).Inc()
	for _, d := range discrepancies {
		s.metrics.DiscrepanciesFound.WithLabelValues(string(d.CheckType)).Inc()
	}
	s.log.Info("batch completed",
		zap.String("batch_id", batch.ID.String()),
		zap.String("provider", batch.Provider),
		zap.Int("line_items", len(items)),
		zap.Int("discrepancies", len(discrepancies)))

	s.notify(ctx, batch)
	return *batch, nil
}

// Submit implements domain.Service.
func (s *Service) Submit(ctx context.Context, req domain.SubmitRequest) (domain.Batch, error) {
	batch, err := s.Create(ctx, domain.CreateRequest{Provider: req.Provider})
	if err != nil {
		return domain.Batch{}, err
	}
	return s.Process(ctx, domain.ProcessRequest{
		ID:       batch.ID.String(),
		Provider: req.Provider,
		Invoice:  req.Invoice,
		Contract: req.Contract,
	})
}

// Get implements domain.Service.
func (s *Service) Get(ctx context.Context, req domain.GetRequest) (domain.Batch, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Batch{}, err
	}
	batch, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Batch{}, err
	}
	if batch == nil {
		return domain.Batch{}, domain.ErrBatchNotFound
	}
	return *batch, nil
}

// List implements domain.Service.
func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResult, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := req.Offset
	if offset < 0 {
		offset = 0
	}

	batches, total, err := s.repo.ListPage(ctx, s.db, offset, limit)
	if err != nil {
		return domain.ListResult{}, err
	}
	return domain.ListResult{Batches: batches, Total: total}, nil
}

// Discrepancies implements domain.Service.
func (s *Service) Discrepancies(ctx context.Context, req domain.DiscrepanciesRequest) ([]auditdomain.Discrepancy, error) {
	id, err := s.parseID(req.BatchID)
	if err != nil {
		return nil, err
	}
	batch, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, domain.ErrBatchNotFound
	}
	return s.repo.ListDiscrepancies(ctx, s.db, id, req.Filter)
}

// prepare parses both CSV streams into evaluator inputs. Every error here is
// a batch-level failure, not an infrastructure error.
func (s *Service) prepare(batch *domain.Batch, req domain.ProcessRequest) ([]auditdomain.LineItem, int, *ratecard.Index, string, error) {
	if req.Invoice == nil || req.Contract == nil {
		return nil, 0, nil, "", fmt.Errorf("%w: missing invoice or contract stream", domain.ErrInvalidBatch)
	}

	contractRaw, err := io.ReadAll(req.Contract)
	if err != nil {
		return nil, 0, nil, "", fmt.Errorf("read contract: %w", err)
	}

	provider := req.Provider
	if provider == "" {
		provider = batch.Provider
	}
	if provider == "" || provider == "Unknown" {
		provider = ingest.DetectProvider(string(contractRaw))
	}

	contract, err := ingest.ParseContract(bytes.NewReader(contractRaw), provider)
	if err != nil {
		return nil, 0, nil, "", err
	}
	index, err := ratecard.BuildIndex(contract)
	if err != nil {
		return nil, 0, nil, "", err
	}

	rows, err := ingest.ParseInvoice(req.Invoice)
	if err != nil {
		return nil, 0, nil, "", err
	}
	result := ingest.Normalize(rows)
	if len(result.Items) == 0 {
		return nil, 0, nil, "", domain.ErrEmptyInvoiceSet
	}
	return result.Items, result.Skipped, index, provider, nil
}

// transition moves the batch along the lifecycle edge set with a CAS guard on
// the previous status. Re-asserting the current terminal status is a no-op.
func (s *Service) transition(ctx context.Context, db *gorm.DB, batch *domain.Batch, to domain.BatchStatus) error {
	if batch.Status == to && batch.Status.Terminal() {
		return nil
	}
	if !batch.Status.CanTransitionTo(to) {
		return domain.ErrInvalidTransition
	}

	prev := batch.Status
	batch.Status = to
	ok, err := s.repo.UpdateStatusCAS(ctx, db, batch, prev)
	if err != nil {
		batch.Status = prev
		return err
	}
	if !ok {
		batch.Status = prev
		return domain.ErrInvalidTransition
	}
	return nil
}

func (s *Service) fail(ctx context.Context, batch *domain.Batch, cause error) domain.Batch {
	msg := cause.Error()
	now := s.clock.Now(ctx)
	batch.ErrorMessage = &msg
	batch.ProcessedAt = &now

	if err := s.transition(ctx, nil, batch, domain.BatchFailed); err != nil {
		s.log.Error("failed to record batch failure",
			zap.String("batch_id", batch.ID.String()),
			zap.Error(err))
	}
	s.metrics.BatchesProcessed.WithLabelValues(string(domain.BatchFailed)).Inc()
	s.log.Warn("batch failed",
		zap.String("batch_id", batch.ID.String()),
		zap.String("reason", msg))
	return *batch
}

// notify fans a completed batch out to the optional alert generator and
// analytics cache. Both are best-effort.
func (s *Service) notify(ctx context.Context, batch *domain.Batch) {
	if s.alertSvc != nil {
		if _, err := s.alertSvc.GenerateForBatch(ctx, batch); err != nil {
			s.log.Error("alert generation failed",
				zap.String("batch_id", batch.ID.String()),
				zap.Error(err))
		}
	}
	if s.analytics != nil {
		if err := s.analytics.Invalidate(ctx); err != nil {
			s.log.Warn("analytics cache invalidation failed", zap.Error(err))
		}
	}
}

func (s *Service) parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: bad id %q", domain.ErrInvalidBatch, raw)
	}
	return id, nil
}
