package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/freightauditlabs/freightaudit/internal/alert/domain"
	auditdomain "github.com/freightauditlabs/freightaudit/internal/audit/domain"
	batchdomain "github.com/freightauditlabs/freightaudit/internal/batch/domain"
	"github.com/freightauditlabs/freightaudit/internal/clock"
	"github.com/freightauditlabs/freightaudit/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Overcharge-rate bands, in percent of total billed.
const (
	highOverchargeRate     = 15.0
	moderateOverchargeRate = 5.0
)

const minCriticalCount = 2

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
	cfg   config.AlertsConfig
}

type ServiceParam struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Repo   domain.Repository
	Config config.Config
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("alert.service"),

		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		cfg:   p.Config.Alerts,
	}
}

// GenerateForBatch implements domain.Service. Rules read only the batch
// summary; a batch that never completed yields nothing.
func (s *Service) GenerateForBatch(ctx context.Context, batch *batchdomain.Batch) ([]domain.Alert, error) {
	if batch == nil || batch.Status != batchdomain.BatchCompleted {
		return nil, nil
	}
	summary := batch.Summary.Data()
	if summary == nil {
		return nil, nil
	}

	now := s.clock.Now(ctx)
	var alerts []domain.Alert
	add := func(alertType domain.AlertType, severity auditdomain.Severity, title, message string) {
		alerts = append(alerts, domain.Alert{
			ID:           s.genID.Generate(),
			BatchID:      batch.ID,
			ProviderName: batch.Provider,
			Type:         alertType,
			Severity:     severity,
			Title:        title,
			Message:      message,
			CreatedAt:    now,
		})
	}

	switch {
	case summary.OverchargeRate > highOverchargeRate:
		add(domain.AlertHighOverchargeRate, auditdomain.SeverityCritical, "High Overcharge Rate Detected",
			fmt.Sprintf("overcharge rate %.2f%% exceeds %.0f%% of billed amount", summary.OverchargeRate, highOverchargeRate))
	case summary.OverchargeRate > moderateOverchargeRate:
		add(domain.AlertModerateOverchargeRate, auditdomain.SeverityHigh, "Moderate Overcharge Rate",
			fmt.Sprintf("overcharge rate %.2f%% exceeds %.0f%% of billed amount", summary.OverchargeRate, moderateOverchargeRate))
	}

	if s.cfg.LargeOverchargeThreshold > 0 && summary.TotalOvercharge > s.cfg.LargeOverchargeThreshold {
		add(domain.AlertLargeAbsoluteOvercharge, auditdomain.SeverityCritical, "Large Overcharge Amount",
			fmt.Sprintf("total overcharge %.2f exceeds threshold %.2f", summary.TotalOvercharge, s.cfg.LargeOverchargeThreshold))
	}

	if criticals := summary.SeverityCounts[string(auditdomain.SeverityCritical)]; criticals >= minCriticalCount {
		add(domain.AlertMultipleCritical, auditdomain.SeverityHigh, "Multiple Critical Discrepancies",
			fmt.Sprintf("%d critical discrepancies in one batch", criticals))
	}

	if dups := summary.CheckTypeCounts[string(auditdomain.CheckDuplicateAWB)]; dups > 0 {
		add(domain.AlertDuplicateAWBs, auditdomain.SeverityHigh, "Duplicate AWBs Detected",
			fmt.Sprintf("%d duplicate AWB billings detected", dups))
	}

	if len(alerts) == 0 {
		return nil, nil
	}
	if err := s.repo.Insert(ctx, s.db, alerts); err != nil {
		return nil, err
	}

	s.log.Info("alerts generated",
		zap.String("batch_id", batch.ID.String()),
		zap.Int("count", len(alerts)))
	return alerts, nil
}

// List implements domain.Service.
func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Alert, error) {
	return s.repo.List(ctx, s.db, req)
}

// MarkRead implements domain.Service.
func (s *Service) MarkRead(ctx context.Context, id string) (domain.Alert, error) {
	parsed, err := snowflake.ParseString(id)
	if err != nil {
		return domain.Alert{}, fmt.Errorf("%w: bad id %q", domain.ErrAlertNotFound, id)
	}

	changed, err := s.repo.MarkRead(ctx, s.db, parsed)
	if err != nil {
		return domain.Alert{}, err
	}
	if changed == 0 {
		// Distinguish an already-read alert from a missing one.
		existing, err := s.repo.FindByID(ctx, s.db, parsed)
		if err != nil {
			return domain.Alert{}, err
		}
		if existing == nil {
			return domain.Alert{}, domain.ErrAlertNotFound
		}
		return *existing, nil
	}

	alert, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return domain.Alert{}, err
	}
	if alert == nil {
		return domain.Alert{}, domain.ErrAlertNotFound
	}
	return *alert, nil
}

// MarkAllRead implements domain.Service.
func (s *Service) MarkAllRead(ctx context.Context) (int64, error) {
	return s.repo.MarkAllRead(ctx, s.db)
}
