package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/freightauditlabs/freightaudit/internal/audit/domain"
	batchdomain "github.com/freightauditlabs/freightaudit/internal/batch/domain"
	"github.com/freightauditlabs/freightaudit/internal/report/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ExportService struct {
	db  *gorm.DB
	log *zap.Logger

	batchRepo batchdomain.Repository
}

type ExportServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	BatchRepo batchdomain.Repository
}

func NewExportService(p ExportServiceParam) domain.Service {
	return &ExportService{
		db:  p.DB,
		log: p.Log.Named("report.export"),

		batchRepo: p.BatchRepo,
	}
}

// ExportDiscrepancies implements domain.Service.
func (s *ExportService) ExportDiscrepancies(ctx context.Context, req domain.ExportRequest) (*domain.ExportResult, error) {
	batchID, err := snowflake.ParseString(req.BatchID)
	if err != nil {
		return nil, fmt.Errorf("%w: bad id %q", batchdomain.ErrInvalidBatch, req.BatchID)
	}

	batch, err := s.batchRepo.FindByID(ctx, s.db, batchID)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, batchdomain.ErrBatchNotFound
	}

	discrepancies, err := s.batchRepo.ListDiscrepancies(ctx, s.db, batchID, batchdomain.DiscrepancyFilter{
		DisputeStatus: req.DisputeStatus,
	})
	if err != nil {
		return nil, err
	}

	var data []byte
	switch req.Format {
	case domain.ExportFormatCSV:
		data, err = s.formatCSV(discrepancies)
	case domain.ExportFormatJSON:
		data, err = s.formatJSON(discrepancies)
	case domain.ExportFormatPDF:
		data, err = s.formatPDF(batch, discrepancies)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, req.Format)
	}
	if err != nil {
		return nil, err
	}

	return &domain.ExportResult{
		Data:     data,
		Checksum: calculateChecksum(data),
		Format:   req.Format,
		Filename: fmt.Sprintf("batch_%s_discrepancies.%s", batchID, req.Format),
		Count:    len(discrepancies),
	}, nil
}

func (s *ExportService) formatCSV(discrepancies []auditdomain.Discrepancy) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{
		"awb_number",
		"check_type",
		"severity",
		"description",
		"billed_value",
		"expected_value",
		"overcharge_amount",
		"confidence_score",
		"dispute_status",
		"created_at",
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, d := range discrepancies {
		row := []string{
			d.AWBNumber,
			string(d.CheckType),
			string(d.Severity),
			d.Description,
			formatAmount(d.BilledValue),
			formatAmountPtr(d.ExpectedValue),
			formatAmount(d.OverchargeAmount),
			formatAmount(d.ConfidenceScore),
			string(d.DisputeStatus),
			d.CreatedAt.Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *ExportService) formatJSON(discrepancies []auditdomain.Discrepancy) ([]byte, error) {
	type ExportRecord struct {
		AWBNumber        string   `json:"awb_number"`
		CheckType        string   `json:"check_type"`
		Severity         string   `json:"severity"`
		Description      string   `json:"description,omitempty"`
		BilledValue      float64  `json:"billed_value"`
		ExpectedValue    *float64 `json:"expected_value,omitempty"`
		OverchargeAmount float64  `json:"overcharge_amount"`
		ConfidenceScore  float64  `json:"confidence_score"`
		DisputeStatus    string   `json:"dispute_status"`
		CreatedAt        string   `json:"created_at"`
	}

	records := make([]ExportRecord, 0, len(discrepancies))
	for _, d := range discrepancies {
		records = append(records, ExportRecord{
			AWBNumber:        d.AWBNumber,
			CheckType:        string(d.CheckType),
			Severity:         string(d.Severity),
			Description:      d.Description,
			BilledValue:      d.BilledValue,
			ExpectedValue:    d.ExpectedValue,
			OverchargeAmount: d.OverchargeAmount,
			ConfidenceScore:  d.ConfidenceScore,
			DisputeStatus:    string(d.DisputeStatus),
			CreatedAt:        d.CreatedAt.Format(time.RFC3339),
		})
	}

	return json.MarshalIndent(records, "", "  ")
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatAmountPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return formatAmount(*v)
}

func calculateChecksum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
