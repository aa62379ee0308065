package server

import (
	"strconv"
	"strings"

	auditdomain "github.com/freightauditlabs/freightaudit/internal/audit/domain"
	disputedomain "github.com/freightauditlabs/freightaudit/internal/dispute/domain"
	"github.com/gin-gonic/gin"
)

type transitionBody struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

// TransitionDispute handles POST /api/v1/discrepancies/:id/dispute.
func (s *Server) TransitionDispute(c *gin.Context) {
	var body transitionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	discrepancy, err := s.disputeSvc.Transition(c.Request.Context(), disputedomain.TransitionRequest{
		DiscrepancyID: c.Param("id"),
		Status:        auditdomain.DisputeStatus(strings.ToLower(body.Status)),
		Notes:         body.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, discrepancy)
}

// GetDiscrepancy handles GET /api/v1/discrepancies/:id.
func (s *Server) GetDiscrepancy(c *gin.Context) {
	discrepancy, err := s.disputeSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, discrepancy)
}

type bulkRaiseBody struct {
	Notes string `json:"notes"`
}

// BulkRaiseDisputes handles POST /api/v1/batches/:id/disputes.
func (s *Server) BulkRaiseDisputes(c *gin.Context) {
	var body bulkRaiseBody
	_ = c.ShouldBindJSON(&body) // body optional

	raised, err := s.disputeSvc.BulkRaise(c.Request.Context(), disputedomain.BulkRaiseRequest{
		BatchID: c.Param("id"),
		Notes:   body.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, gin.H{"raised": raised})
}

// ListDisputes handles GET /api/v1/disputes.
func (s *Server) ListDisputes(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	discrepancies, err := s.disputeSvc.List(c.Request.Context(), disputedomain.ListRequest{
		Status: auditdomain.DisputeStatus(strings.TrimSpace(c.Query("status"))),
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, discrepancies)
}
