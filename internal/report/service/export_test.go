package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/freightauditlabs/freightaudit/internal/audit/domain"
	batchdomain "github.com/freightauditlabs/freightaudit/internal/batch/domain"
	batchrepo "github.com/freightauditlabs/freightaudit/internal/batch/repository"
	"github.com/freightauditlabs/freightaudit/internal/report/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type exportFixture struct {
	svc   domain.Service
	db    *gorm.DB
	node  *snowflake.Node
	batch batchdomain.Batch
}

func setupExport(t *testing.T) *exportFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&batchdomain.Batch{}, &auditdomain.Discrepancy{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	batch := batchdomain.Batch{ID: node.Generate(), Provider: "BlueDart", Status: batchdomain.BatchCompleted}
	require.NoError(t, db.Create(&batch).Error)

	expected := 9.6
	discrepancies := []auditdomain.Discrepancy{
		{
			ID:               node.Generate(),
			BatchID:          batch.ID,
			AWBNumber:        "AWB001",
			CheckType:        auditdomain.CheckFuelSurchargeMismatch,
			Severity:         auditdomain.SeverityMedium,
			BilledValue:      20,
			ExpectedValue:    &expected,
			OverchargeAmount: 10.4,
			ConfidenceScore:  0.87,
			DisputeStatus:    auditdomain.DisputePending,
			CreatedAt:        time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:               node.Generate(),
			BatchID:          batch.ID,
			AWBNumber:        "AWB002",
			CheckType:        auditdomain.CheckDuplicateAWB,
			Severity:         auditdomain.SeverityCritical,
			BilledValue:      118,
			OverchargeAmount: 118,
			ConfidenceScore:  1,
			DisputeStatus:    auditdomain.DisputeRaised,
			CreatedAt:        time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC),
		},
	}
	require.NoError(t, db.Create(&discrepancies).Error)

	svc := NewExportService(ExportServiceParam{
		DB:        db,
		Log:       zap.NewNop(),
		BatchRepo: batchrepo.NewBatchRepository(db),
	})
	return &exportFixture{svc: svc, db: db, node: node, batch: batch}
}

func TestExport_CSV(t *testing.T) {
	f := setupExport(t)

	result, err := f.svc.ExportDiscrepancies(context.Background(), domain.ExportRequest{
		BatchID: f.batch.ID.String(),
		Format:  domain.ExportFormatCSV,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Count)
	assert.Equal(t, domain.ExportFormatCSV, result.Format)
	assert.True(t, strings.HasSuffix(result.Filename, ".csv"))

	lines := strings.Split(strings.TrimSpace(string(result.Data)), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "awb_number")
	assert.Contains(t, lines[1], "AWB001")
	assert.Contains(t, lines[1], "fuel_surcharge_mismatch")
	assert.Contains(t, lines[1], "10.40")
	assert.Contains(t, lines[2], "duplicate_awb")

	hash := sha256.Sum256(result.Data)
	assert.Equal(t, hex.EncodeToString(hash[:]), result.Checksum)
}

func TestExport_JSONWithStatusFilter(t *testing.T) {
	f := setupExport(t)

	result, err := f.svc.ExportDiscrepancies(context.Background(), domain.ExportRequest{
		BatchID:       f.batch.ID.String(),
		Format:        domain.ExportFormatJSON,
		DisputeStatus: string(auditdomain.DisputeRaised),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count)

	var records []map[string]any
	require.NoError(t, json.Unmarshal(result.Data, &records))
	require.Len(t, records, 1)
	assert.Equal(t, "AWB002", records[0]["awb_number"])
	assert.Equal(t, "raised", records[0]["dispute_status"])
}

func TestExport_PDF(t *testing.T) {
	f := setupExport(t)

	result, err := f.svc.ExportDiscrepancies(context.Background(), domain.ExportRequest{
		BatchID: f.batch.ID.String(),
		Format:  domain.ExportFormatPDF,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Count)
	assert.True(t, strings.HasPrefix(string(result.Data), "%PDF"))
}

func TestExport_Errors(t *testing.T) {
	f := setupExport(t)

	_, err := f.svc.ExportDiscrepancies(context.Background(), domain.ExportRequest{
		BatchID: f.batch.ID.String(),
		Format:  "xml",
	})
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)

	_, err = f.svc.ExportDiscrepancies(context.Background(), domain.ExportRequest{
		BatchID: f.node.Generate().String(),
		Format:  domain.ExportFormatCSV,
	})
	assert.ErrorIs(t, err, batchdomain.ErrBatchNotFound)
}
