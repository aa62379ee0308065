// Package server exposes the audit engine over HTTP.
package server

import (
	"context"
	"net/http"

	alertdomain "github.com/freightauditlabs/freightaudit/internal/alert/domain"
	analyticsdomain "github.com/freightauditlabs/freightaudit/internal/analytics/domain"
	batchdomain "github.com/freightauditlabs/freightaudit/internal/batch/domain"
	"github.com/freightauditlabs/freightaudit/internal/config"
	disputedomain "github.com/freightauditlabs/freightaudit/internal/dispute/domain"
	"github.com/freightauditlabs/freightaudit/internal/observability"
	reportdomain "github.com/freightauditlabs/freightaudit/internal/report/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Server struct {
	log *zap.Logger
	cfg config.ServerConfig

	batchSvc     batchdomain.Service
	disputeSvc   disputedomain.Service
	alertSvc     alertdomain.Service
	analyticsSvc analyticsdomain.Service
	exportSvc    reportdomain.Service
	metrics      *observability.Metrics

	engine *gin.Engine
	http   *http.Server
}

type ServerParam struct {
	fx.In

	Log          *zap.Logger
	Config       config.Config
	BatchSvc     batchdomain.Service
	DisputeSvc   disputedomain.Service
	AlertSvc     alertdomain.Service
	AnalyticsSvc analyticsdomain.Service
	ExportSvc    reportdomain.Service
	Metrics      *observability.Metrics
}

func NewServer(p ServerParam) *Server {
	s := &Server{
		log: p.Log.Named("server"),
		cfg: p.Config.Server,

		batchSvc:     p.BatchSvc,
		disputeSvc:   p.DisputeSvc,
		alertSvc:     p.AlertSvc,
		analyticsSvc: p.AnalyticsSvc,
		exportSvc:    p.ExportSvc,
		metrics:      p.Metrics,
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(s.RequestID())
	engine.Use(s.RequestLogger())

	s.engine = engine
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(
		s.metrics.Registry,
		promhttp.HandlerOpts{},
	)))

	v1 := s.engine.Group("/api/v1")

	v1.POST("/batches", s.SubmitBatch)
	v1.GET("/batches", s.ListBatches)
	v1.GET("/batches/:id", s.GetBatch)
	v1.POST("/batches/:id/process", s.ProcessBatch)
	v1.GET("/batches/:id/discrepancies", s.ListBatchDiscrepancies)
	v1.GET("/batches/:id/export", s.ExportBatch)
	v1.POST("/batches/:id/disputes", s.BulkRaiseDisputes)

	v1.GET("/discrepancies/:id", s.GetDiscrepancy)
	v1.POST("/discrepancies/:id/dispute", s.TransitionDispute)
	v1.GET("/disputes", s.ListDisputes)

	v1.GET("/alerts", s.ListAlerts)
	v1.POST("/alerts/:id/read", s.MarkAlertRead)
	v1.POST("/alerts/read-all", s.MarkAllAlertsRead)

	v1.GET("/analytics/summary", s.AnalyticsSummary)
}

// Engine exposes the router for tests.
func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) Start(ctx context.Context) error {
	s.http = &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.engine,
	}
	go func() {
		s.log.Info("http server listening", zap.String("addr", s.cfg.Addr))
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("http server stopped", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
