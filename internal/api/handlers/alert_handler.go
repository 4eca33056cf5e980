package handlers

import (
	"context"
	"net/http"
	"strconv"

	"example.com/safetysync/services/telemetry/internal/models"
	"example.com/safetysync/services/telemetry/internal/repositories"
	"example.com/safetysync/services/telemetry/internal/services"
	"example.com/safetysync/services/telemetry/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// AlertHandler handles alert HTTP requests
type AlertHandler struct {
	alerting *services.AlertingService
	tracer   tracing.Tracer
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(alerting *services.AlertingService, tracer tracing.Tracer) *AlertHandler {
	return &AlertHandler{
		alerting: alerting,
		tracer:   tracer,
	}
}

// HandleList returns alerts matching the query filters, newest first
func (h *AlertHandler) HandleList(c *gin.Context) {
	filter := repositories.AlertFilter{
		EquipmentID:    c.Query("equipment_id"),
		Severity:       models.AlertSeverity(c.Query("severity")),
		UnresolvedOnly: c.Query("unresolved") == "true",
	}
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "100"))

	alerts, err := h.alerting.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": alerts, "count": len(alerts)})
}

// HandleAcknowledge marks an alert as seen
func (h *AlertHandler) HandleAcknowledge(c *gin.Context) {
	h.transition(c, h.alerting.Acknowledge)
}

// HandleResolve closes an alert
func (h *AlertHandler) HandleResolve(c *gin.Context) {
	h.transition(c, h.alerting.Resolve)
}

func (h *AlertHandler) transition(c *gin.Context, apply func(ctx context.Context, id uuid.UUID) (*models.Alert, error)) {
	id, ok := parseAlertID(c)
	if !ok {
		return
	}

	alert, err := apply(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, alert)
}

// RegisterRoutes registers the handler's routes
func (h *AlertHandler) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/v1/alerts")
	group.GET("", h.HandleList)
	group.POST("/:id/acknowledge", h.HandleAcknowledge)
	group.POST("/:id/resolve", h.HandleResolve)
}

// parseAlertID reads and validates the :id path parameter
func parseAlertID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert id"})
		return uuid.Nil, false
	}
	return id, true
}
