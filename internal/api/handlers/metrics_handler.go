package handlers

import (
	"context"
	"net/http"
	"runtime"

	"example.com/safetysync/services/telemetry/internal/metrics"

	"github.com/gin-gonic/gin"
)

// HealthChecker pings the service's dependencies
type HealthChecker interface {
	CheckHealth(ctx context.Context) map[string]bool
}

// MetricsHandler serves runtime metrics and health
type MetricsHandler struct {
	metrics *metrics.Metrics
	health  HealthChecker
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(metricsCollector *metrics.Metrics, health HealthChecker) *MetricsHandler {
	return &MetricsHandler{
		metrics: metricsCollector,
		health:  health,
	}
}

// HandleGetMetrics returns the runtime metrics snapshot
func (h *MetricsHandler) HandleGetMetrics(c *gin.Context) {
	h.metrics.SetGauge("goroutines", int64(runtime.NumGoroutine()))
	c.JSON(http.StatusOK, h.metrics.GetAllMetrics())
}

// HandleGetHealth pings the dependencies and reports overall health
func (h *MetricsHandler) HandleGetHealth(c *gin.Context) {
	checks := map[string]bool{}
	if h.health != nil {
		checks = h.health.CheckHealth(c.Request.Context())
	}

	healthy := true
	for name, ok := range checks {
		h.metrics.RecordHealthCheck(name, ok)
		if !ok {
			healthy = false
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":  healthy,
		"details": checks,
	})
}

// RegisterRoutes registers the handler's routes
func (h *MetricsHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/metrics", h.HandleGetMetrics)
	router.GET("/health", h.HandleGetHealth)
}
