package services

import (
	"context"
	"encoding/json"
	"time"

	"example.com/safetysync/services/telemetry/config"
	"example.com/safetysync/services/telemetry/internal/metrics"
	"example.com/safetysync/services/telemetry/internal/models"
	"example.com/safetysync/services/telemetry/internal/pipeline"
	"example.com/safetysync/services/telemetry/internal/repositories"
	"example.com/safetysync/services/telemetry/internal/search"
	"example.com/safetysync/services/telemetry/internal/tracing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Batch sources recorded on quality records
const (
	SourceAPI   = "api"
	SourceQueue = "queue"
)

// IngestionBatch is the wire format accepted over HTTP and the queue
type IngestionBatch struct {
	Source   string             `json:"source,omitempty"`
	Readings []pipeline.Reading `json:"readings"`
}

// IngestionService runs the ingestion pipeline and records per-batch outcomes
type IngestionService struct {
	pipeline    *pipeline.Pipeline
	qualityRepo repositories.QualityRepository
	indexer     search.Indexer
	metrics     *metrics.Metrics
	tracer      tracing.Tracer
}

// NewIngestionService creates the ingestion service. The pipeline is built
// from the explicit configuration so thresholds are fixed at construction.
func NewIngestionService(
	cfg config.PipelineConfig,
	lookup pipeline.EquipmentLookup,
	writer pipeline.BatchWriter,
	qualityRepo repositories.QualityRepository,
	indexer search.Indexer,
	metricsCollector *metrics.Metrics,
	tracer tracing.Tracer,
) *IngestionService {
	return &IngestionService{
		pipeline:    pipeline.New(pipelineConfig(cfg), lookup, writer),
		qualityRepo: qualityRepo,
		indexer:     indexer,
		metrics:     metricsCollector,
		tracer:      tracer,
	}
}

// pipelineConfig maps service configuration onto the pipeline's own config
func pipelineConfig(cfg config.PipelineConfig) pipeline.Config {
	out := pipeline.Config{
		MaxBatchSize:       cfg.MaxBatchSize,
		FreshnessWindow:    cfg.FreshnessWindow,
		ClockSkewTolerance: cfg.ClockSkewTolerance,
		ConsistencySigma:   cfg.ConsistencySigma,
	}
	if len(cfg.MetricRanges) > 0 {
		ranges := pipeline.DefaultMetricRanges()
		for name, r := range cfg.MetricRanges {
			ranges[name] = pipeline.MetricRange{Min: r.Min, Max: r.Max}
		}
		out.MetricRanges = ranges
	}
	return out
}

// IngestBatch runs one batch through the pipeline and records the outcome.
// Schema errors and storage faults are returned to the caller alongside any
// partial result; per-reading rejections are part of the result, not errors.
func (s *IngestionService) IngestBatch(ctx context.Context, source string, readings []pipeline.Reading) (*pipeline.Result, error) {
	txn := s.tracer.StartTransaction("ingest-batch")
	defer s.tracer.EndTransaction(txn)
	s.tracer.AddAttribute(txn, "source", source)
	s.tracer.AddAttribute(txn, "submitted", len(readings))

	if source == "" {
		source = SourceAPI
	}

	result, err := s.pipeline.Ingest(ctx, readings)
	if result == nil {
		// Rejected before processing, nothing to record
		s.tracer.RecordError(txn, err)
		return nil, err
	}

	s.recordOutcome(ctx, source, result)

	if err != nil {
		s.tracer.RecordError(txn, err)
		log.Error().Err(err).
			Str("batch_id", result.BatchID.String()).
			Str("source", source).
			Msg("Batch failed on storage")
		return result, err
	}

	log.Info().
		Str("batch_id", result.BatchID.String()).
		Str("source", source).
		Str("status", string(result.Status)).
		Int("accepted", result.Accepted).
		Int("rejected", len(result.Rejected)).
		Int("deduplicated", result.DeduplicatedCount).
		Int64("inserted", result.Inserted).
		Msg("Batch ingested")

	return result, nil
}

// ProcessBatchMessage handles one queue message body. A nil return completes
// the message; ErrStorageUnavailable is passed through so the consumer can
// abandon for redelivery. Undecodable bodies are counted and completed.
func (s *IngestionService) ProcessBatchMessage(ctx context.Context, body []byte) error {
	var batch IngestionBatch
	if err := json.Unmarshal(body, &batch); err != nil {
		s.metrics.IncrementCounter(metrics.QueueMessagesBad)
		log.Warn().Err(err).Msg("Dropping malformed queue message")
		return nil
	}

	s.metrics.IncrementCounter(metrics.QueueMessages)

	_, err := s.IngestBatch(ctx, SourceQueue, batch.Readings)
	if err != nil {
		if errors.Is(err, pipeline.ErrStorageUnavailable) {
			return err
		}
		// Schema-level rejection: completing the message avoids a redelivery loop
		s.metrics.IncrementCounter(metrics.QueueMessagesBad)
		log.Warn().Err(err).Msg("Rejecting queue batch")
		return nil
	}
	return nil
}

// recordOutcome persists the quality record and indexes it for reporting.
// Both are best-effort: the batch outcome stands even if bookkeeping fails.
func (s *IngestionService) recordOutcome(ctx context.Context, source string, result *pipeline.Result) {
	s.metrics.IncrementCounter(metrics.BatchesIngested)
	if result.Status == pipeline.StatusFailed {
		s.metrics.IncrementCounter(metrics.BatchesFailed)
	}
	s.metrics.IncrementCounterBy(metrics.ReadingsAccepted, int64(result.Accepted))
	s.metrics.IncrementCounterBy(metrics.ReadingsRejected, int64(len(result.Rejected)))
	s.metrics.IncrementCounterBy(metrics.ReadingsDeduped, int64(result.DeduplicatedCount))
	s.metrics.RecordDuration(metrics.IngestTimer, time.Duration(result.ProcessingMs)*time.Millisecond)

	record := &models.QualityRecord{
		ID:           uuid.New(),
		BatchID:      result.BatchID,
		Source:       source,
		Submitted:    result.Quality.Submitted,
		Accepted:     result.Accepted,
		Rejected:     len(result.Rejected),
		Deduplicated: result.DeduplicatedCount,
		Inserted:     result.Inserted,
		Completeness: result.Quality.Completeness,
		Validity:     result.Quality.Validity,
		Timeliness:   result.Quality.Timeliness,
		Uniqueness:   result.Quality.Uniqueness,
		Consistency:  result.Quality.Consistency,
		Status:       string(result.Status),
		ProcessingMs: result.ProcessingMs,
	}

	if err := s.qualityRepo.Create(ctx, record); err != nil {
		log.Error().Err(err).
			Str("batch_id", result.BatchID.String()).
			Msg("Failed to persist quality record")
		return
	}

	if s.indexer != nil {
		if err := s.indexer.IndexQualityRecord(ctx, record); err != nil {
			log.Warn().Err(err).
				Str("batch_id", result.BatchID.String()).
				Msg("Failed to index quality record")
		}
	}
}
