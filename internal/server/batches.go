package server

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	batchdomain "github.com/freightauditlabs/freightaudit/internal/batch/domain"
	reportdomain "github.com/freightauditlabs/freightaudit/internal/report/domain"
	"github.com/gin-gonic/gin"
)

// SubmitBatch handles POST /api/v1/batches. Expects multipart form files
// "invoice" and "contract" plus an optional "provider" field.
func (s *Server) SubmitBatch(c *gin.Context) {
	invoice, contract, ok := s.formFiles(c)
	if !ok {
		return
	}
	defer invoice.Close()
	defer contract.Close()

	batch, err := s.batchSvc.Submit(c.Request.Context(), batchdomain.SubmitRequest{
		Provider: strings.TrimSpace(c.PostForm("provider")),
		Invoice:  invoice,
		Contract: contract,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondCreated(c, batch)
}

// ProcessBatch handles POST /api/v1/batches/:id/process.
func (s *Server) ProcessBatch(c *gin.Context) {
	invoice, contract, ok := s.formFiles(c)
	if !ok {
		return
	}
	defer invoice.Close()
	defer contract.Close()

	batch, err := s.batchSvc.Process(c.Request.Context(), batchdomain.ProcessRequest{
		ID:       c.Param("id"),
		Provider: strings.TrimSpace(c.PostForm("provider")),
		Invoice:  invoice,
		Contract: contract,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, batch)
}

// GetBatch handles GET /api/v1/batches/:id.
func (s *Server) GetBatch(c *gin.Context) {
	batch, err := s.batchSvc.Get(c.Request.Context(), batchdomain.GetRequest{ID: c.Param("id")})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, batch)
}

// ListBatches handles GET /api/v1/batches.
func (s *Server) ListBatches(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	result, err := s.batchSvc.List(c.Request.Context(), batchdomain.ListRequest{
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, result)
}

// ListBatchDiscrepancies handles GET /api/v1/batches/:id/discrepancies.
func (s *Server) ListBatchDiscrepancies(c *gin.Context) {
	discrepancies, err := s.batchSvc.Discrepancies(c.Request.Context(), batchdomain.DiscrepanciesRequest{
		BatchID: c.Param("id"),
		Filter: batchdomain.DiscrepancyFilter{
			CheckType:     strings.TrimSpace(c.Query("check_type")),
			Severity:      strings.TrimSpace(c.Query("severity")),
			DisputeStatus: strings.TrimSpace(c.Query("dispute_status")),
		},
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, discrepancies)
}

// ExportBatch handles GET /api/v1/batches/:id/export.
func (s *Server) ExportBatch(c *gin.Context) {
	format := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", "csv")))

	result, err := s.exportSvc.ExportDiscrepancies(c.Request.Context(), reportdomain.ExportRequest{
		BatchID:       c.Param("id"),
		Format:        reportdomain.ExportFormat(format),
		DisputeStatus: strings.TrimSpace(c.Query("dispute_status")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	contentType := "application/octet-stream"
	switch result.Format {
	case reportdomain.ExportFormatCSV:
		contentType = "text/csv"
	case reportdomain.ExportFormatJSON:
		contentType = "application/json"
	case reportdomain.ExportFormatPDF:
		contentType = "application/pdf"
	}

	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Header("X-Export-Checksum", result.Checksum)
	c.Data(http.StatusOK, contentType, result.Data)
}

func (s *Server) formFiles(c *gin.Context) (io.ReadCloser, io.ReadCloser, bool) {
	invoice, ok := s.openFormFile(c, "invoice")
	if !ok {
		return nil, nil, false
	}
	contract, ok := s.openFormFile(c, "contract")
	if !ok {
		invoice.Close()
		return nil, nil, false
	}
	return invoice, contract, true
}

func (s *Server) openFormFile(c *gin.Context, field string) (multipart.File, bool) {
	header, err := c.FormFile(field)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return nil, false
	}
	f, err := header.Open()
	if err != nil {
		AbortWithError(c, err)
		return nil, false
	}
	return f, true
}
