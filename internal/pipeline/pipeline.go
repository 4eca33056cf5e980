package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Sentinel errors. Schema errors reject a batch before any processing;
// ErrStorageUnavailable marks transient faults where retrying the whole batch
// is safe because the bulk insert is idempotent on identity keys.
var (
	ErrEmptyBatch         = errors.New("batch contains no readings")
	ErrBatchTooLarge      = errors.New("batch exceeds the maximum size")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// MetricRange is the accepted [Min, Max] interval for one metric
type MetricRange struct {
	Min float64 `json:"min" mapstructure:"min"`
	Max float64 `json:"max" mapstructure:"max"`
}

// Config carries every pipeline threshold explicitly so behavior is
// deterministic under test. Zero fields fall back to defaults.
type Config struct {
	MaxBatchSize       int
	FreshnessWindow    time.Duration
	ClockSkewTolerance time.Duration
	ConsistencySigma   float64
	MetricRanges       map[string]MetricRange
}

// DefaultMetricRanges returns the accepted value intervals for the standard
// safety metrics.
func DefaultMetricRanges() map[string]MetricRange {
	return map[string]MetricRange{
		"gas_concentration": {Min: -0.1, Max: 10000},
		"temperature":       {Min: -50, Max: 200},
		"pressure":          {Min: 0, Max: 1000},
		"humidity":          {Min: 0, Max: 100},
		"battery_level":     {Min: 0, Max: 100},
		"vibration":         {Min: 0, Max: 1000},
	}
}

// DefaultConfig returns the standard pipeline thresholds
func DefaultConfig() Config {
	return Config{
		MaxBatchSize:       1000,
		FreshnessWindow:    60 * time.Minute,
		ClockSkewTolerance: 5 * time.Minute,
		ConsistencySigma:   3.0,
		MetricRanges:       DefaultMetricRanges(),
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxBatchSize <= 0 {
		c.MaxBatchSize = def.MaxBatchSize
	}
	if c.FreshnessWindow <= 0 {
		c.FreshnessWindow = def.FreshnessWindow
	}
	if c.ClockSkewTolerance <= 0 {
		c.ClockSkewTolerance = def.ClockSkewTolerance
	}
	if c.ConsistencySigma <= 0 {
		c.ConsistencySigma = def.ConsistencySigma
	}
	if c.MetricRanges == nil {
		c.MetricRanges = def.MetricRanges
	}
	return c
}

// EquipmentLookup resolves which of the referenced equipment ids are
// registered. One call per batch; read-only.
type EquipmentLookup interface {
	Known(ctx context.Context, ids []string) (map[string]bool, error)
}

// BatchWriter persists a deduplicated, validated batch in a single bulk
// operation. It must be atomic at the batch level and silently skip rows whose
// identity key already exists, returning the number of rows actually inserted.
type BatchWriter interface {
	BulkInsert(ctx context.Context, readings []Reading) (int64, error)
}

// Status is the overall outcome of one batch
type Status string

const (
	StatusCommitted Status = "committed"
	StatusPartial   Status = "partial"
	StatusRejected  Status = "rejected"
	StatusFailed    Status = "failed"
)

// Result reports the outcome of one ingestion batch. Accepted + len(Rejected)
// always equals the submitted count; Inserted may be lower than Accepted when
// identity keys already existed in storage.
type Result struct {
	BatchID           uuid.UUID     `json:"batch_id"`
	Status            Status        `json:"status"`
	Accepted          int           `json:"accepted"`
	Rejected          []Rejection   `json:"rejected"`
	DeduplicatedCount int           `json:"deduplicated_count"`
	Inserted          int64         `json:"inserted"`
	Quality           QualityReport `json:"quality"`
	ProcessingMs      int64         `json:"processing_ms"`
}

// Pipeline runs validation, deduplication, quality scoring, and the bulk
// write for one batch at a time. Concurrent batches share no state except the
// storage behind the writer; the writer call is the only suspension point.
type Pipeline struct {
	cfg       Config
	validator *Validator
	scorer    *Scorer
	lookup    EquipmentLookup
	writer    BatchWriter
	now       func() time.Time
}

// New creates a pipeline with explicit configuration and its two
// collaborators: the read-only equipment registry and the storage writer.
func New(cfg Config, lookup EquipmentLookup, writer BatchWriter) *Pipeline {
	cfg = cfg.withDefaults()
	return &Pipeline{
		cfg:       cfg,
		validator: NewValidator(cfg),
		scorer:    NewScorer(cfg),
		lookup:    lookup,
		writer:    writer,
		now:       time.Now,
	}
}

// Ingest processes one batch end to end and reports per-batch statistics.
// Per-reading validation failures never abort the batch; structurally invalid
// input is rejected before processing with a schema error; a storage fault
// fails the whole batch atomically and is returned alongside the result so
// the caller can distinguish it from data rejection.
func (p *Pipeline) Ingest(ctx context.Context, readings []Reading) (*Result, error) {
	if len(readings) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(readings) > p.cfg.MaxBatchSize {
		return nil, errors.Wrapf(ErrBatchTooLarge, "%d readings exceed the limit of %d", len(readings), p.cfg.MaxBatchSize)
	}

	start := p.now()
	result := &Result{BatchID: uuid.New()}

	known, err := p.knownEquipment(ctx, readings)
	if err != nil {
		return nil, errors.Wrap(ErrStorageUnavailable, err.Error())
	}

	accepted := make([]Reading, 0, len(readings))
	for i, r := range readings {
		if rej := p.validator.Check(r, start, known); rej != nil {
			rej.Index = i
			result.Rejected = append(result.Rejected, *rej)
			continue
		}
		accepted = append(accepted, r)
	}

	deduped, removed := Deduplicate(accepted)
	result.Accepted = len(accepted)
	result.DeduplicatedCount = removed
	result.Quality = p.scorer.Score(readings, result.Rejected, removed, start)

	switch {
	case len(deduped) == 0:
		result.Status = StatusRejected
	default:
		inserted, err := p.writer.BulkInsert(ctx, deduped)
		if err != nil {
			result.Status = StatusFailed
			result.ProcessingMs = p.now().Sub(start).Milliseconds()
			return result, errors.Wrap(ErrStorageUnavailable, err.Error())
		}
		result.Inserted = inserted
		if len(result.Rejected) > 0 {
			result.Status = StatusPartial
		} else {
			result.Status = StatusCommitted
		}
	}

	result.ProcessingMs = p.now().Sub(start).Milliseconds()
	return result, nil
}

// knownEquipment collects the distinct equipment ids in the batch and resolves
// them against the registry in one lookup.
func (p *Pipeline) knownEquipment(ctx context.Context, readings []Reading) (map[string]bool, error) {
	if p.lookup == nil {
		return nil, nil
	}

	distinct := make(map[string]bool, len(readings))
	ids := make([]string, 0, len(readings))
	for _, r := range readings {
		if r.EquipmentID == "" || distinct[r.EquipmentID] {
			continue
		}
		distinct[r.EquipmentID] = true
		ids = append(ids, r.EquipmentID)
	}
	if len(ids) == 0 {
		return map[string]bool{}, nil
	}

	known, err := p.lookup.Known(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "equipment lookup failed")
	}
	return known, nil
}
