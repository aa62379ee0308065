package server

import (
	alertdomain "github.com/freightauditlabs/freightaudit/internal/alert/domain"
	"github.com/gin-gonic/gin"
)

// ListAlerts handles GET /api/v1/alerts.
func (s *Server) ListAlerts(c *gin.Context) {
	alerts, err := s.alertSvc.List(c.Request.Context(), alertdomain.ListRequest{
		UnreadOnly: c.Query("unread") == "true",
		BatchID:    c.Query("batch_id"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, alerts)
}

// MarkAlertRead handles POST /api/v1/alerts/:id/read.
func (s *Server) MarkAlertRead(c *gin.Context) {
	alert, err := s.alertSvc.MarkRead(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, alert)
}

// MarkAllAlertsRead handles POST /api/v1/alerts/read-all.
func (s *Server) MarkAllAlertsRead(c *gin.Context) {
	changed, err := s.alertSvc.MarkAllRead(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, gin.H{"marked_read": changed})
}

// AnalyticsSummary handles GET /api/v1/analytics/summary.
func (s *Server) AnalyticsSummary(c *gin.Context) {
	report, err := s.analyticsSvc.Report(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, report)
}
