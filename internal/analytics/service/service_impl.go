package service

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/freightauditlabs/freightaudit/internal/analytics/domain"
	batchdomain "github.com/freightauditlabs/freightaudit/internal/batch/domain"
	"github.com/freightauditlabs/freightaudit/internal/config"
	"github.com/gosimple/slug"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	cacheKey = "freightaudit:analytics:report"
	pageSize = 200
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	batchRepo batchdomain.Repository
	cache     *redis.Client
	cacheTTL  time.Duration
}

type ServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	BatchRepo batchdomain.Repository
	Cache     *redis.Client `optional:"true"`
	Config    config.Config
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("analytics.service"),

		batchRepo: p.BatchRepo,
		cache:     p.Cache,
		cacheTTL:  p.Config.Redis.CacheTTL,
	}
}

// Report implements domain.Service. The report is a pure fold over completed
// batch summaries, cached until the next batch completes.
func (s *Service) Report(ctx context.Context) (domain.Report, error) {
	if cached, ok := s.fromCache(ctx); ok {
		return cached, nil
	}

	report, err := s.compute(ctx)
	if err != nil {
		return domain.Report{}, err
	}
	s.toCache(ctx, report)
	return report, nil
}

// Invalidate implements domain.Invalidator.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Del(ctx, cacheKey).Err()
}

func (s *Service) compute(ctx context.Context) (domain.Report, error) {
	var (
		report     domain.Report
		rateSum    float64
		checkStats = map[string]*domain.CheckTypeTotal{}
		providers  = map[string]*domain.ProviderScorecard{}
		months     = map[string]*domain.MonthlyTrend{}
	)

	for offset := 0; ; offset += pageSize {
		page, err := s.batchRepo.ListCompletedPage(ctx, s.db, offset, pageSize)
		if err != nil {
			return domain.Report{}, err
		}

		for i := range page {
			batch := &page[i]
			summary := batch.Summary.Data()
			if summary == nil {
				continue
			}

			report.TotalBatches++
			report.TotalInvoices += summary.TotalInvoices
			report.TotalDiscrepancies += summary.TotalDiscrepancies
			report.TotalBilled += summary.TotalBilled
			report.TotalOvercharge += summary.TotalOvercharge
			rateSum += summary.OverchargeRate

			for check, count := range summary.CheckTypeCounts {
				stat, ok := checkStats[check]
				if !ok {
					stat = &domain.CheckTypeTotal{CheckType: check}
					checkStats[check] = stat
				}
				stat.Count += count
				stat.TotalOvercharge += summary.CheckTypeOvercharge[check]
			}

			key := slug.Make(batch.Provider)
			card, ok := providers[key]
			if !ok {
				card = &domain.ProviderScorecard{Key: key, Provider: batch.Provider}
				providers[key] = card
			}
			card.Batches++
			card.Invoices += summary.TotalInvoices
			card.Discrepancies += summary.TotalDiscrepancies
			card.TotalBilled += summary.TotalBilled
			card.TotalOvercharge += summary.TotalOvercharge

			// trends bucket by creation month, not processing month
			month := batch.CreatedAt.UTC().Format("2006-01")
			trend, ok := months[month]
			if !ok {
				trend = &domain.MonthlyTrend{Month: month}
				months[month] = trend
			}
			trend.Batches++
			trend.Invoices += summary.TotalInvoices
			trend.TotalBilled += summary.TotalBilled
			trend.TotalOvercharge += summary.TotalOvercharge
		}

		if len(page) < pageSize {
			break
		}
	}

	// avg is unweighted across batches regardless of batch size
	if report.TotalBatches > 0 {
		report.AvgOverchargeRate = rateSum / float64(report.TotalBatches)
	}

	for _, stat := range checkStats {
		report.CheckTypeTotals = append(report.CheckTypeTotals, *stat)
	}
	sort.Slice(report.CheckTypeTotals, func(i, j int) bool {
		a, b := report.CheckTypeTotals[i], report.CheckTypeTotals[j]
		if a.TotalOvercharge != b.TotalOvercharge {
			return a.TotalOvercharge > b.TotalOvercharge
		}
		return a.CheckType < b.CheckType
	})

	for _, card := range providers {
		if card.TotalBilled > 0 {
			card.OverchargeRate = card.TotalOvercharge / card.TotalBilled * 100
		}
		report.ProviderScorecards = append(report.ProviderScorecards, *card)
	}
	sort.Slice(report.ProviderScorecards, func(i, j int) bool {
		return report.ProviderScorecards[i].Key < report.ProviderScorecards[j].Key
	})

	for _, trend := range months {
		report.MonthlyTrends = append(report.MonthlyTrends, *trend)
	}
	sort.Slice(report.MonthlyTrends, func(i, j int) bool {
		return report.MonthlyTrends[i].Month < report.MonthlyTrends[j].Month
	})

	return report, nil
}

func (s *Service) fromCache(ctx context.Context) (domain.Report, bool) {
	if s.cache == nil {
		return domain.Report{}, false
	}
	raw, err := s.cache.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.log.Warn("analytics cache read failed", zap.Error(err))
		}
		return domain.Report{}, false
	}
	var report domain.Report
	if err := json.Unmarshal(raw, &report); err != nil {
		s.log.Warn("analytics cache decode failed", zap.Error(err))
		return domain.Report{}, false
	}
	return report, true
}

func (s *Service) toCache(ctx context.Context, report domain.Report) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(report)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey, raw, s.cacheTTL).Err(); err != nil {
		s.log.Warn("analytics cache write failed", zap.Error(err))
	}
}
