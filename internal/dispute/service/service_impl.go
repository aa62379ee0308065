package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/freightauditlabs/freightaudit/internal/audit/domain"
	batchdomain "github.com/freightauditlabs/freightaudit/internal/batch/domain"
	"github.com/freightauditlabs/freightaudit/internal/clock"
	"github.com/freightauditlabs/freightaudit/internal/dispute/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	clock     clock.Clock
	repo      domain.Repository
	batchRepo batchdomain.Repository
}

type ServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	Repo      domain.Repository
	BatchRepo batchdomain.Repository
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("dispute.service"),

		clock:     p.Clock,
		repo:      p.Repo,
		batchRepo: p.BatchRepo,
	}
}

// Get implements domain.Service.
func (s *Service) Get(ctx context.Context, id string) (auditdomain.Discrepancy, error) {
	parsed, err := s.parseID(id)
	if err != nil {
		return auditdomain.Discrepancy{}, err
	}
	discrepancy, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return auditdomain.Discrepancy{}, err
	}
	if discrepancy == nil {
		return auditdomain.Discrepancy{}, domain.ErrDiscrepancyNotFound
	}
	return *discrepancy, nil
}

// Transition implements domain.Service. The status write is guarded by the
// status the caller observed, so two racing updates cannot both win; the
// loser re-reads to report whether the record vanished or the edge became
// invalid.
func (s *Service) Transition(ctx context.Context, req domain.TransitionRequest) (auditdomain.Discrepancy, error) {
	id, err := s.parseID(req.DiscrepancyID)
	if err != nil {
		return auditdomain.Discrepancy{}, err
	}

	discrepancy, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return auditdomain.Discrepancy{}, err
	}
	if discrepancy == nil {
		return auditdomain.Discrepancy{}, domain.ErrDiscrepancyNotFound
	}
	if !domain.CanTransition(discrepancy.DisputeStatus, req.Status) {
		return auditdomain.Discrepancy{}, fmt.Errorf("%w: %s -> %s",
			domain.ErrInvalidTransition, discrepancy.DisputeStatus, req.Status)
	}

	var notes *string
	if req.Notes != "" {
		notes = &req.Notes
	}

	ok, err := s.repo.UpdateStatusCAS(ctx, s.db, id, discrepancy.DisputeStatus, req.Status, notes, s.clock.Now(ctx))
	if err != nil {
		return auditdomain.Discrepancy{}, err
	}
	if !ok {
		current, err := s.repo.FindByID(ctx, s.db, id)
		if err != nil {
			return auditdomain.Discrepancy{}, err
		}
		if current == nil {
			return auditdomain.Discrepancy{}, domain.ErrDiscrepancyNotFound
		}
		return auditdomain.Discrepancy{}, fmt.Errorf("%w: %s -> %s",
			domain.ErrInvalidTransition, current.DisputeStatus, req.Status)
	}

	updated, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return auditdomain.Discrepancy{}, err
	}
	if updated == nil {
		return auditdomain.Discrepancy{}, domain.ErrDiscrepancyNotFound
	}

	s.log.Info("dispute transitioned",
		zap.String("discrepancy_id", id.String()),
		zap.String("status", string(req.Status)))
	return *updated, nil
}

// BulkRaise implements domain.Service.
func (s *Service) BulkRaise(ctx context.Context, req domain.BulkRaiseRequest) (int64, error) {
	batchID, err := snowflake.ParseString(req.BatchID)
	if err != nil {
		return 0, fmt.Errorf("%w: bad batch id %q", batchdomain.ErrInvalidBatch, req.BatchID)
	}

	batch, err := s.batchRepo.FindByID(ctx, s.db, batchID)
	if err != nil {
		return 0, err
	}
	if batch == nil {
		return 0, batchdomain.ErrBatchNotFound
	}

	var notes *string
	if req.Notes != "" {
		notes = &req.Notes
	}

	raised, err := s.repo.RaisePending(ctx, s.db, batchID, notes, s.clock.Now(ctx))
	if err != nil {
		return 0, err
	}
	if raised > 0 {
		s.log.Info("disputes raised in bulk",
			zap.String("batch_id", batchID.String()),
			zap.Int64("raised", raised))
	}
	return raised, nil
}

// List implements domain.Service.
func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]auditdomain.Discrepancy, error) {
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
	return s.repo.ListByStatus(ctx, s.db, req.Status, offset, limit)
}

func (s *Service) parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: bad id %q", domain.ErrInvalidDiscrepancy, raw)
	}
	return id, nil
}
