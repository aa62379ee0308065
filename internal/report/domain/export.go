// Package domain defines discrepancy export formats and contracts.
package domain

import (
	"context"
	"errors"
)

var ErrUnsupportedFormat = errors.New("unsupported_export_format")

type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatJSON ExportFormat = "json"
	ExportFormatPDF  ExportFormat = "pdf"
)

// ExportRequest selects one batch's discrepancies for export, optionally
// narrowed by dispute status.
type ExportRequest struct {
	BatchID       string
	Format        ExportFormat
	DisputeStatus string
}

// ExportResult carries the rendered document plus a sha256 checksum for
// integrity verification downstream.
type ExportResult struct {
	Data     []byte
	Checksum string
	Format   ExportFormat
	Filename string
	Count    int
}

type Service interface {
	ExportDiscrepancies(ctx context.Context, req ExportRequest) (*ExportResult, error)
}
