package handlers

import (
	"net/http"
	"strconv"

	"example.com/safetysync/services/telemetry/internal/models"
	"example.com/safetysync/services/telemetry/internal/repositories"
	"example.com/safetysync/services/telemetry/internal/services"
	"example.com/safetysync/services/telemetry/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// EquipmentHandler handles equipment registry HTTP requests
type EquipmentHandler struct {
	equipment *services.EquipmentService
	tracer    tracing.Tracer
}

// NewEquipmentHandler creates a new equipment handler
func NewEquipmentHandler(equipment *services.EquipmentService, tracer tracing.Tracer) *EquipmentHandler {
	return &EquipmentHandler{
		equipment: equipment,
		tracer:    tracer,
	}
}

// EquipmentRequest is the payload for creating or updating equipment
type EquipmentRequest struct {
	ID       string                 `json:"id" binding:"required"`
	Name     string                 `json:"name" binding:"required"`
	Type     models.EquipmentType   `json:"type" binding:"required"`
	Status   models.EquipmentStatus `json:"status"`
	Location string                 `json:"location"`
}

// HandleCreate registers a new piece of equipment
func (h *EquipmentHandler) HandleCreate(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-equipment-create")
	defer h.tracer.EndTransaction(txn)

	var req EquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	equipment := &models.Equipment{
		ID:       req.ID,
		Name:     req.Name,
		Type:     req.Type,
		Status:   req.Status,
		Location: req.Location,
	}

	if err := h.equipment.Create(c.Request.Context(), equipment); err != nil {
		h.tracer.RecordError(txn, err)
		if errors.Is(err, repositories.ErrAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		log.Error().Err(err).Str("equipment_id", req.ID).Msg("Failed to create equipment")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, equipment)
}

// HandleGet returns one piece of equipment
func (h *EquipmentHandler) HandleGet(c *gin.Context) {
	equipment, err := h.equipment.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, equipment)
}

// HandleList returns equipment matching the query filters
func (h *EquipmentHandler) HandleList(c *gin.Context) {
	filter := repositories.EquipmentFilter{
		Type:     models.EquipmentType(c.Query("type")),
		Status:   models.EquipmentStatus(c.Query("status")),
		Location: c.Query("location"),
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "50"))

	equipment, total, err := h.equipment.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": equipment,
		"total": total,
		"page":  filter.Page,
	})
}

// HandleUpdate modifies a registered piece of equipment
func (h *EquipmentHandler) HandleUpdate(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-equipment-update")
	defer h.tracer.EndTransaction(txn)

	var req EquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	equipment := &models.Equipment{
		ID:       c.Param("id"),
		Name:     req.Name,
		Type:     req.Type,
		Status:   req.Status,
		Location: req.Location,
	}

	if err := h.equipment.Update(c.Request.Context(), equipment); err != nil {
		h.tracer.RecordError(txn, err)
		if errors.Is(err, repositories.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, equipment)
}

// HandleDelete removes equipment with no readings attached
func (h *EquipmentHandler) HandleDelete(c *gin.Context) {
	if err := h.equipment.Delete(c.Request.Context(), c.Param("id")); err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, repositories.ErrHasReadings):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "hint": "decommission the equipment instead"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleDecommission marks equipment as out of service
func (h *EquipmentHandler) HandleDecommission(c *gin.Context) {
	if err := h.equipment.Decommission(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "status": models.EquipmentStatusDecommissioned})
}

// RegisterRoutes registers the handler's routes
func (h *EquipmentHandler) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/v1/equipment")
	group.POST("", h.HandleCreate)
	group.GET("", h.HandleList)
	group.GET("/:id", h.HandleGet)
	group.PUT("/:id", h.HandleUpdate)
	group.DELETE("/:id", h.HandleDelete)
	group.POST("/:id/decommission", h.HandleDecommission)
}
