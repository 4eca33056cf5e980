package services

import (
	"context"
	"fmt"
	"time"

	"example.com/safetysync/services/telemetry/internal/metrics"
	"example.com/safetysync/services/telemetry/internal/models"
	"example.com/safetysync/services/telemetry/internal/repositories"
	"example.com/safetysync/services/telemetry/internal/search"
	"example.com/safetysync/services/telemetry/internal/tracing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// AlertingService scans recent readings against safety thresholds and
// manages the lifecycle of the alerts it raises. Scoring in the pipeline is
// advisory; this service is the component that actually reacts to values.
type AlertingService struct {
	thresholds  map[string]float64
	readingRepo repositories.ReadingRepository
	alertRepo   repositories.AlertRepository
	indexer     search.Indexer
	metrics     *metrics.Metrics
	tracer      tracing.Tracer
	now         func() time.Time
}

// NewAlertingService creates a new alerting service
func NewAlertingService(
	thresholds map[string]float64,
	readingRepo repositories.ReadingRepository,
	alertRepo repositories.AlertRepository,
	indexer search.Indexer,
	metricsCollector *metrics.Metrics,
	tracer tracing.Tracer,
) *AlertingService {
	return &AlertingService{
		thresholds:  thresholds,
		readingRepo: readingRepo,
		alertRepo:   alertRepo,
		indexer:     indexer,
		metrics:     metricsCollector,
		tracer:      tracer,
		now:         time.Now,
	}
}

// SeverityFor maps how far a value exceeds its threshold onto a severity
func SeverityFor(actual, threshold float64) models.AlertSeverity {
	if threshold <= 0 {
		return models.SeverityInfo
	}
	ratio := actual / threshold
	switch {
	case ratio > 2.0:
		return models.SeverityEmergency
	case ratio > 1.5:
		return models.SeverityCritical
	case ratio > 1.2:
		return models.SeverityWarning
	default:
		return models.SeverityInfo
	}
}

// ScanOnce examines readings newer than now-window and raises an alert for
// each (equipment, metric) pair whose worst value exceeds its threshold.
// Pairs that already have an open alert are skipped.
func (s *AlertingService) ScanOnce(ctx context.Context, window time.Duration) (int, error) {
	txn := s.tracer.StartTransaction("threshold-scan")
	defer s.tracer.EndTransaction(txn)

	start := s.now()
	readings, err := s.readingRepo.ListSince(ctx, start.Add(-window))
	if err != nil {
		s.tracer.RecordError(txn, err)
		return 0, err
	}

	type pairKey struct {
		equipmentID string
		metricName  string
	}
	worst := make(map[pairKey]models.SensorReading)
	for _, r := range readings {
		threshold, ok := s.thresholds[r.MetricName]
		if !ok || r.MetricValue <= threshold {
			continue
		}
		key := pairKey{equipmentID: r.EquipmentID, metricName: r.MetricName}
		if prev, seen := worst[key]; !seen || r.MetricValue > prev.MetricValue {
			worst[key] = r
		}
	}

	raised := 0
	for key, reading := range worst {
		open, err := s.alertRepo.HasOpen(ctx, key.equipmentID, key.metricName)
		if err != nil {
			s.tracer.RecordError(txn, err)
			return raised, err
		}
		if open {
			continue
		}

		threshold := s.thresholds[key.metricName]
		alert := &models.Alert{
			ID:             uuid.New(),
			EquipmentID:    key.equipmentID,
			MetricName:     key.metricName,
			AlertType:      models.AlertTypeThresholdExceeded,
			Severity:       SeverityFor(reading.MetricValue, threshold),
			Message: fmt.Sprintf("%s on %s reached %g (threshold %g)",
				key.metricName, key.equipmentID, reading.MetricValue, threshold),
			ThresholdValue: threshold,
			ActualValue:    reading.MetricValue,
		}

		if err := s.alertRepo.Create(ctx, alert); err != nil {
			s.tracer.RecordError(txn, err)
			return raised, err
		}
		raised++
		s.metrics.IncrementCounter(metrics.AlertsRaised)

		if s.indexer != nil {
			if err := s.indexer.IndexAlert(ctx, alert); err != nil {
				log.Warn().Err(err).Str("alert_id", alert.ID.String()).Msg("Failed to index alert")
			}
		}

		s.logAlert(alert)
	}

	s.metrics.RecordDuration(metrics.ThresholdScanTimer, s.now().Sub(start))
	log.Info().
		Int("readings", len(readings)).
		Int("alerts_raised", raised).
		Dur("window", window).
		Msg("Threshold scan completed")

	return raised, nil
}

// Acknowledge marks an alert as seen by an operator
func (s *AlertingService) Acknowledge(ctx context.Context, id uuid.UUID) (*models.Alert, error) {
	alert, err := s.alertRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if alert.Acknowledged {
		return alert, nil
	}

	now := s.now().UTC()
	alert.Acknowledged = true
	alert.AcknowledgedAt = &now
	if err := s.alertRepo.Update(ctx, alert); err != nil {
		return nil, err
	}
	return alert, nil
}

// Resolve closes an alert, allowing the scanner to raise a new one for the
// same equipment and metric
func (s *AlertingService) Resolve(ctx context.Context, id uuid.UUID) (*models.Alert, error) {
	alert, err := s.alertRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if alert.Resolved {
		return alert, nil
	}

	now := s.now().UTC()
	alert.Resolved = true
	alert.ResolvedAt = &now
	if err := s.alertRepo.Update(ctx, alert); err != nil {
		return nil, err
	}
	return alert, nil
}

// List returns alerts matching the filter, newest first
func (s *AlertingService) List(ctx context.Context, filter repositories.AlertFilter) ([]models.Alert, error) {
	return s.alertRepo.List(ctx, filter)
}

func (s *AlertingService) logAlert(alert *models.Alert) {
	var event *zerolog.Event
	switch alert.Severity {
	case models.SeverityEmergency, models.SeverityCritical:
		event = log.Error()
	case models.SeverityWarning:
		event = log.Warn()
	default:
		event = log.Info()
	}

	event.
		Str("alert_id", alert.ID.String()).
		Str("equipment_id", alert.EquipmentID).
		Str("metric", alert.MetricName).
		Str("severity", string(alert.Severity)).
		Float64("actual", alert.ActualValue).
		Float64("threshold", alert.ThresholdValue).
		Msg("Safety threshold exceeded")
}
