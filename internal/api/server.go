package api

import (
	"context"
	"net/http"
	"time"

	"example.com/safetysync/services/telemetry/config"
	"example.com/safetysync/services/telemetry/internal/api/handlers"
	"example.com/safetysync/services/telemetry/internal/metrics"
	"example.com/safetysync/services/telemetry/internal/services"
	"example.com/safetysync/services/telemetry/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Server represents the HTTP server
type Server struct {
	config     config.Config
	router     *gin.Engine
	httpServer *http.Server
	ingestion  *services.IngestionService
	equipment  *services.EquipmentService
	alerting   *services.AlertingService
	stats      *services.StatsService
	metrics    *metrics.Metrics
	tracer     tracing.Tracer
	health     handlers.HealthChecker
}

// NewServer creates a new HTTP server
func NewServer(
	cfg config.Config,
	ingestion *services.IngestionService,
	equipment *services.EquipmentService,
	alerting *services.AlertingService,
	stats *services.StatsService,
	metricsCollector *metrics.Metrics,
	tracer tracing.Tracer,
	health handlers.HealthChecker,
) *Server {
	server := &Server{
		config:    cfg,
		ingestion: ingestion,
		equipment: equipment,
		alerting:  alerting,
		stats:     stats,
		metrics:   metricsCollector,
		tracer:    tracer,
		health:    health,
	}

	server.router = server.setupRouter()
	server.httpServer = &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      server.router,
		ReadTimeout:  cfg.ServerTimeout,
		WriteTimeout: cfg.ServerTimeout,
	}

	return server
}

// setupRouter configures the HTTP router
func (s *Server) setupRouter() *gin.Engine {
	if s.config.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	if app := s.tracer.Application(); app != nil {
		router.Use(nrgin.Middleware(app))
	}

	ingestionHandler := handlers.NewIngestionHandler(s.ingestion, s.stats, s.tracer)
	ingestionHandler.RegisterRoutes(router)

	equipmentHandler := handlers.NewEquipmentHandler(s.equipment, s.tracer)
	equipmentHandler.RegisterRoutes(router)

	alertHandler := handlers.NewAlertHandler(s.alerting, s.tracer)
	alertHandler.RegisterRoutes(router)

	metricsHandler := handlers.NewMetricsHandler(s.metrics, s.health)
	metricsHandler.RegisterRoutes(router)

	return router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Info().Str("address", s.config.ServerAddress).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server error")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "HTTP server shutdown error")
	}

	log.Info().Msg("HTTP server shut down successfully")
	return nil
}
