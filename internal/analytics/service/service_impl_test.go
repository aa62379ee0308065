package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/freightauditlabs/freightaudit/internal/analytics/domain"
	auditdomain "github.com/freightauditlabs/freightaudit/internal/audit/domain"
	batchdomain "github.com/freightauditlabs/freightaudit/internal/batch/domain"
	batchrepo "github.com/freightauditlabs/freightaudit/internal/batch/repository"
	"github.com/freightauditlabs/freightaudit/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type analyticsFixture struct {
	svc  domain.Service
	db   *gorm.DB
	node *snowflake.Node
}

func setupAnalytics(t *testing.T, withCache bool) *analyticsFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&batchdomain.Batch{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	var cache *redis.Client
	if withCache {
		mr := miniredis.RunT(t)
		cache = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	}

	svc := NewService(ServiceParam{
		DB:        db,
		Log:       zap.NewNop(),
		BatchRepo: batchrepo.NewBatchRepository(db),
		Cache:     cache,
		Config: config.Config{
			Redis: config.RedisConfig{CacheTTL: time.Minute},
		},
	})
	return &analyticsFixture{svc: svc, db: db, node: node}
}

func (f *analyticsFixture) seedBatch(t *testing.T, provider string, createdAt time.Time, summary batchdomain.Summary) {
	t.Helper()
	processedAt := createdAt.Add(time.Hour)
	batch := batchdomain.Batch{
		ID:          f.node.Generate(),
		Provider:    provider,
		Status:      batchdomain.BatchCompleted,
		Summary:     datatypes.NewJSONType(&summary),
		CreatedAt:   createdAt,
		ProcessedAt: &processedAt,
	}
	require.NoError(t, f.db.Create(&batch).Error)
}

func TestReport_FoldsCompletedBatches(t *testing.T) {
	f := setupAnalytics(t, false)

	april := time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)
	may := time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)

	f.seedBatch(t, "BlueDart", april, batchdomain.Summary{
		TotalInvoices:      100,
		TotalDiscrepancies: 10,
		TotalBilled:        10000,
		TotalOvercharge:    1000,
		OverchargeRate:     10,
		CheckTypeCounts: map[string]int{
			string(auditdomain.CheckRateDeviation):        6,
			string(auditdomain.CheckFuelSurchargeMismatch): 4,
		},
		CheckTypeOvercharge: map[string]float64{
			string(auditdomain.CheckRateDeviation):        700,
			string(auditdomain.CheckFuelSurchargeMismatch): 300,
		},
	})
	f.seedBatch(t, "Delhivery", may, batchdomain.Summary{
		TotalInvoices:      50,
		TotalDiscrepancies: 5,
		TotalBilled:        40000,
		TotalOvercharge:    800,
		OverchargeRate:     2,
		CheckTypeCounts: map[string]int{
			string(auditdomain.CheckRateDeviation): 5,
		},
		CheckTypeOvercharge: map[string]float64{
			string(auditdomain.CheckRateDeviation): 800,
		},
	})

	// a failed batch never contributes
	failed := batchdomain.Batch{ID: f.node.Generate(), Provider: "DTDC", Status: batchdomain.BatchFailed}
	require.NoError(t, f.db.Create(&failed).Error)

	report, err := f.svc.Report(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.TotalBatches)
	assert.Equal(t, 150, report.TotalInvoices)
	assert.Equal(t, 15, report.TotalDiscrepancies)
	assert.Equal(t, 50000.0, report.TotalBilled)
	assert.Equal(t, 1800.0, report.TotalOvercharge)
	// unweighted mean of 10% and 2%, not 1800/50000
	assert.InDelta(t, 6.0, report.AvgOverchargeRate, 0.001)

	require.Len(t, report.CheckTypeTotals, 2)
	assert.Equal(t, string(auditdomain.CheckRateDeviation), report.CheckTypeTotals[0].CheckType)
	assert.Equal(t, 1500.0, report.CheckTypeTotals[0].TotalOvercharge)
	assert.Equal(t, 11, report.CheckTypeTotals[0].Count)

	require.Len(t, report.ProviderScorecards, 2)
	assert.Equal(t, "bluedart", report.ProviderScorecards[0].Key)
	assert.Equal(t, "BlueDart", report.ProviderScorecards[0].Provider)
	assert.Equal(t, 100, report.ProviderScorecards[0].Invoices)
	assert.Equal(t, 10, report.ProviderScorecards[0].Discrepancies)
	assert.InDelta(t, 10.0, report.ProviderScorecards[0].OverchargeRate, 0.001)
	assert.Equal(t, 50, report.ProviderScorecards[1].Invoices)
	assert.Equal(t, 5, report.ProviderScorecards[1].Discrepancies)

	require.Len(t, report.MonthlyTrends, 2)
	assert.Equal(t, "2025-04", report.MonthlyTrends[0].Month)
	assert.Equal(t, 100, report.MonthlyTrends[0].Invoices)
	assert.Equal(t, "2025-05", report.MonthlyTrends[1].Month)
	assert.Equal(t, 50, report.MonthlyTrends[1].Invoices)
}

func TestReport_TrendsBucketByCreationMonth(t *testing.T) {
	f := setupAnalytics(t, false)

	// created at the end of April, processed in May
	createdAt := time.Date(2025, 4, 30, 23, 50, 0, 0, time.UTC)
	f.seedBatch(t, "BlueDart", createdAt, batchdomain.Summary{
		TotalInvoices: 20, TotalBilled: 1000, TotalOvercharge: 50, OverchargeRate: 5,
	})

	report, err := f.svc.Report(context.Background())
	require.NoError(t, err)

	require.Len(t, report.MonthlyTrends, 1)
	assert.Equal(t, "2025-04", report.MonthlyTrends[0].Month)
	assert.Equal(t, 20, report.MonthlyTrends[0].Invoices)
}

func TestReport_EmptyDatabase(t *testing.T) {
	f := setupAnalytics(t, false)

	report, err := f.svc.Report(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.TotalBatches)
	assert.Zero(t, report.AvgOverchargeRate)
	assert.Empty(t, report.CheckTypeTotals)
}

func TestReport_CacheAndInvalidate(t *testing.T) {
	f := setupAnalytics(t, true)

	april := time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)
	f.seedBatch(t, "BlueDart", april, batchdomain.Summary{
		TotalBilled: 1000, TotalOvercharge: 100, OverchargeRate: 10,
	})

	first, err := f.svc.Report(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.TotalBatches)

	// a new batch is invisible until invalidation
	f.seedBatch(t, "Delhivery", april, batchdomain.Summary{
		TotalBilled: 2000, TotalOvercharge: 40, OverchargeRate: 2,
	})
	cached, err := f.svc.Report(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, cached.TotalBatches)

	require.NoError(t, f.svc.Invalidate(context.Background()))
	fresh, err := f.svc.Report(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.TotalBatches)
	assert.InDelta(t, 6.0, fresh.AvgOverchargeRate, 0.001)
}
