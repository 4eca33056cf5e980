package services

import (
	"context"
	"encoding/json"
	"time"

	"example.com/safetysync/services/telemetry/internal/models"
	"example.com/safetysync/services/telemetry/internal/pipeline"
	"example.com/safetysync/services/telemetry/internal/repositories"

	"github.com/google/uuid"
)

// readingWriter adapts the reading repository to the pipeline's BatchWriter
type readingWriter struct {
	repo repositories.ReadingRepository
	now  func() time.Time
}

// NewReadingWriter creates the storage writer used by the pipeline
func NewReadingWriter(repo repositories.ReadingRepository) pipeline.BatchWriter {
	return &readingWriter{repo: repo, now: time.Now}
}

// BulkInsert converts pipeline readings to rows and persists them in one
// transactional bulk insert. Rows already present by identity key are skipped.
func (w *readingWriter) BulkInsert(ctx context.Context, readings []pipeline.Reading) (int64, error) {
	receivedAt := w.now().UTC()

	rows := make([]models.SensorReading, 0, len(readings))
	for _, r := range readings {
		row := models.SensorReading{
			ID:            uuid.New(),
			EquipmentID:   r.EquipmentID,
			MetricName:    r.MetricName,
			Timestamp:     r.Timestamp.UTC(),
			MetricValue:   r.Value,
			MetricUnit:    r.Unit,
			ReadingStatus: models.ReadingStatusValid,
			ReceivedAt:    receivedAt,
		}
		if len(r.Metadata) > 0 {
			// Metadata is already validated key-value strings; encoding cannot fail
			row.Metadata, _ = json.Marshal(r.Metadata)
		}
		rows = append(rows, row)
	}

	return w.repo.BulkInsert(ctx, rows)
}
