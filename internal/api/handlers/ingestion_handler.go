package handlers

import (
	"net/http"
	"strconv"
	"time"

	"example.com/safetysync/services/telemetry/internal/pipeline"
	"example.com/safetysync/services/telemetry/internal/services"
	"example.com/safetysync/services/telemetry/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// IngestionHandler handles ingestion-related HTTP requests
type IngestionHandler struct {
	ingestion *services.IngestionService
	stats     *services.StatsService
	tracer    tracing.Tracer
}

// NewIngestionHandler creates a new ingestion handler
func NewIngestionHandler(ingestion *services.IngestionService, stats *services.StatsService, tracer tracing.Tracer) *IngestionHandler {
	return &IngestionHandler{
		ingestion: ingestion,
		stats:     stats,
		tracer:    tracer,
	}
}

// HandleIngestBatch accepts a batch of readings for ingestion.
// Rejected readings are a first-class outcome reported in the 202 body;
// only schema errors (400) and storage faults (503) use error statuses.
func (h *IngestionHandler) HandleIngestBatch(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-ingest-batch")
	defer h.tracer.EndTransaction(txn)

	var batch services.IngestionBatch
	if err := c.ShouldBindJSON(&batch); err != nil {
		log.Warn().Err(err).Msg("Invalid batch payload")
		h.tracer.RecordError(txn, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed batch: " + err.Error()})
		return
	}

	h.tracer.AddAttribute(txn, "submitted", len(batch.Readings))

	result, err := h.ingestion.IngestBatch(c.Request.Context(), batch.Source, batch.Readings)
	if err != nil {
		h.tracer.RecordError(txn, err)
		switch {
		case errors.Is(err, pipeline.ErrStorageUnavailable):
			// Transient fault: counts are still reported so the caller can retry the batch
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable", "result": result})
		case errors.Is(err, pipeline.ErrEmptyBatch), errors.Is(err, pipeline.ErrBatchTooLarge):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusAccepted, result)
}

// HandleIngestSingle accepts one reading, wrapped as a single-element batch
func (h *IngestionHandler) HandleIngestSingle(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-ingest-single")
	defer h.tracer.EndTransaction(txn)

	var reading pipeline.Reading
	if err := c.ShouldBindJSON(&reading); err != nil {
		log.Warn().Err(err).Msg("Invalid reading payload")
		h.tracer.RecordError(txn, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed reading: " + err.Error()})
		return
	}

	result, err := h.ingestion.IngestBatch(c.Request.Context(), services.SourceAPI, []pipeline.Reading{reading})
	if err != nil {
		h.tracer.RecordError(txn, err)
		if errors.Is(err, pipeline.ErrStorageUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable", "result": result})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, result)
}

// HandleGetStats reports aggregated ingestion statistics
func (h *IngestionHandler) HandleGetStats(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-ingestion-stats")
	defer h.tracer.EndTransaction(txn)

	hours := 24
	if raw := c.Query("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 24*90 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "hours must be a positive integer"})
			return
		}
		hours = parsed
	}

	stats, err := h.stats.Stats(c.Request.Context(), time.Now().Add(-time.Duration(hours)*time.Hour))
	if err != nil {
		log.Error().Err(err).Msg("Failed to aggregate ingestion stats")
		h.tracer.RecordError(txn, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// RegisterRoutes registers the handler's routes
func (h *IngestionHandler) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/v1/ingestion")
	group.POST("/batch", h.HandleIngestBatch)
	group.POST("/single", h.HandleIngestSingle)
	group.GET("/stats", h.HandleGetStats)
}
