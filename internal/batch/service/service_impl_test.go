package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/freightauditlabs/freightaudit/internal/audit/domain"
	auditservice "github.com/freightauditlabs/freightaudit/internal/audit/service"
	"github.com/freightauditlabs/freightaudit/internal/batch/domain"
	"github.com/freightauditlabs/freightaudit/internal/batch/repository"
	"github.com/freightauditlabs/freightaudit/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixedClock struct {
	at time.Time
}

func (c fixedClock) Now(context.Context) time.Time { return c.at }

const testInvoiceCSV = `awb_number,date,origin_pincode,destination_pincode,weight_billed,zone,base_freight,cod_fee,rto_fee,fuel_surcharge,other_surcharges,gst_rate,total_billed
CLEAN01,2025-04-01,110001,160001,1,ZONE_B,80,0,0,9.6,0,18,105.728
FUEL01,2025-04-01,110001,160001,1,ZONE_B,80,0,0,20,0,18,118
`

const testContractCSV = `zone,base_rate,cod_percentage,rto_percentage,fuel_surcharge_percentage,gst_percentage,permitted_surcharges
ZONE_A,50,1.5,50,10,18,Handling
ZONE_B,80,1.5,50,12,18,
`

func setupService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Batch{},
		&auditdomain.LineItem{},
		&auditdomain.Discrepancy{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(ServiceParam{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     fixedClock{at: time.Date(2025, 4, 15, 12, 0, 0, 0, time.UTC)},
		Repo:      repository.NewBatchRepository(db),
		Evaluator: auditservice.NewEvaluator(zap.NewNop()),
		Metrics:   observability.NewMetrics(),
	})
	return svc, db
}

func TestSubmit_CompletesWithSummary(t *testing.T) {
	svc, db := setupService(t)

	batch, err := svc.Submit(context.Background(), domain.SubmitRequest{
		Provider: "BlueDart",
		Invoice:  strings.NewReader(testInvoiceCSV),
		Contract: strings.NewReader(testContractCSV),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.BatchCompleted, batch.Status)
	assert.Equal(t, "BlueDart", batch.Provider)
	require.NotNil(t, batch.ProcessedAt)
	assert.Nil(t, batch.ErrorMessage)

	summary := batch.Summary.Data()
	require.NotNil(t, summary)
	assert.Equal(t, 2, summary.TotalInvoices)
	assert.Equal(t, 0, summary.SkippedRows)
	assert.Equal(t, 223.73, summary.TotalBilled)
	assert.Equal(t, 1, summary.CheckTypeCounts[string(auditdomain.CheckFuelSurchargeMismatch)])

	// total overcharge equals the per-check breakdown
	var breakdown float64
	for _, amount := range summary.CheckTypeOvercharge {
		breakdown += amount
	}
	assert.InDelta(t, summary.TotalOvercharge, breakdown, 0.001)

	// persisted rows match the summary
	var itemCount, discCount int64
	require.NoError(t, db.Model(&auditdomain.LineItem{}).Where("batch_id = ?", batch.ID).Count(&itemCount).Error)
	require.NoError(t, db.Model(&auditdomain.Discrepancy{}).Where("batch_id = ?", batch.ID).Count(&discCount).Error)
	assert.EqualValues(t, summary.TotalInvoices, itemCount)
	assert.EqualValues(t, summary.TotalDiscrepancies, discCount)
}

func TestProcess_EmptyInvoiceFailsBatch(t *testing.T) {
	svc, _ := setupService(t)

	header := "awb_number,total_billed\n"
	batch, err := svc.Submit(context.Background(), domain.SubmitRequest{
		Provider: "DTDC",
		Invoice:  strings.NewReader(header),
		Contract: strings.NewReader(testContractCSV),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.BatchFailed, batch.Status)
	require.NotNil(t, batch.ErrorMessage)
	assert.Contains(t, *batch.ErrorMessage, "empty_invoice_set")
}

func TestProcess_BadContractFailsBatch(t *testing.T) {
	svc, _ := setupService(t)

	batch, err := svc.Submit(context.Background(), domain.SubmitRequest{
		Invoice:  strings.NewReader(testInvoiceCSV),
		Contract: strings.NewReader("zone,base_rate\nZONE_A,-5\n"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.BatchFailed, batch.Status)
	require.NotNil(t, batch.ErrorMessage)
	assert.Contains(t, *batch.ErrorMessage, "invalid_contract")
}

func TestProcess_UnknownBatch(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.Process(context.Background(), domain.ProcessRequest{
		ID:       "123456789",
		Invoice:  strings.NewReader(testInvoiceCSV),
		Contract: strings.NewReader(testContractCSV),
	})
	assert.ErrorIs(t, err, domain.ErrBatchNotFound)
}

func TestProcess_TerminalBatchIsNoOp(t *testing.T) {
	svc, _ := setupService(t)

	done, err := svc.Submit(context.Background(), domain.SubmitRequest{
		Provider: "Delhivery",
		Invoice:  strings.NewReader(testInvoiceCSV),
		Contract: strings.NewReader(testContractCSV),
	})
	require.NoError(t, err)
	require.Equal(t, domain.BatchCompleted, done.Status)

	// reprocessing a completed batch changes nothing
	again, err := svc.Process(context.Background(), domain.ProcessRequest{
		ID:       done.ID.String(),
		Invoice:  strings.NewReader(testInvoiceCSV),
		Contract: strings.NewReader(testContractCSV),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.BatchCompleted, again.Status)
	assert.Equal(t, done.ProcessedAt.Unix(), again.ProcessedAt.Unix())
}

func TestList_PagesNewestFirst(t *testing.T) {
	svc, _ := setupService(t)

	for i := 0; i < 3; i++ {
		_, err := svc.Create(context.Background(), domain.CreateRequest{Provider: "Ekart"})
		require.NoError(t, err)
	}

	page, err := svc.List(context.Background(), domain.ListRequest{Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	assert.Len(t, page.Batches, 2)
}

func TestDiscrepancies_FilterByCheckType(t *testing.T) {
	svc, _ := setupService(t)

	batch, err := svc.Submit(context.Background(), domain.SubmitRequest{
		Provider: "BlueDart",
		Invoice:  strings.NewReader(testInvoiceCSV),
		Contract: strings.NewReader(testContractCSV),
	})
	require.NoError(t, err)

	all, err := svc.Discrepancies(context.Background(), domain.DiscrepanciesRequest{BatchID: batch.ID.String()})
	require.NoError(t, err)
	require.NotEmpty(t, all)

	fuel, err := svc.Discrepancies(context.Background(), domain.DiscrepanciesRequest{
		BatchID: batch.ID.String(),
		Filter:  domain.DiscrepancyFilter{CheckType: string(auditdomain.CheckFuelSurchargeMismatch)},
	})
	require.NoError(t, err)
	require.Len(t, fuel, 1)
	assert.Equal(t, "FUEL01", fuel[0].AWBNumber)

	none, err := svc.Discrepancies(context.Background(), domain.DiscrepanciesRequest{
		BatchID: batch.ID.String(),
		Filter:  domain.DiscrepancyFilter{CheckType: string(auditdomain.CheckDuplicateAWB)},
	})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestBatchStatusTransitions(t *testing.T) {
	assert.True(t, domain.BatchPending.CanTransitionTo(domain.BatchProcessing))
	assert.True(t, domain.BatchPending.CanTransitionTo(domain.BatchFailed))
	assert.True(t, domain.BatchProcessing.CanTransitionTo(domain.BatchCompleted))
	assert.True(t, domain.BatchProcessing.CanTransitionTo(domain.BatchFailed))

	assert.False(t, domain.BatchPending.CanTransitionTo(domain.BatchCompleted))
	assert.False(t, domain.BatchCompleted.CanTransitionTo(domain.BatchProcessing))
	assert.False(t, domain.BatchFailed.CanTransitionTo(domain.BatchCompleted))
	assert.True(t, domain.BatchCompleted.Terminal())
	assert.True(t, domain.BatchFailed.Terminal())
	assert.False(t, domain.BatchProcessing.Terminal())
}
