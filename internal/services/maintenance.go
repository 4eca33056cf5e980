package services

import (
	"context"
	"time"

	"example.com/safetysync/services/telemetry/config"
	"example.com/safetysync/services/telemetry/internal/repositories"

	"github.com/rs/zerolog/log"
)

// MaintenanceService owns the periodic background jobs: equipment-health
// summaries and data-retention cleanup.
type MaintenanceService struct {
	readingRepo repositories.ReadingRepository
	alertRepo   repositories.AlertRepository
	retention   config.RetentionConfig
	now         func() time.Time
}

// NewMaintenanceService creates a new maintenance service
func NewMaintenanceService(
	readingRepo repositories.ReadingRepository,
	alertRepo repositories.AlertRepository,
	retention config.RetentionConfig,
) *MaintenanceService {
	return &MaintenanceService{
		readingRepo: readingRepo,
		alertRepo:   alertRepo,
		retention:   retention,
		now:         time.Now,
	}
}

// HealthSummary logs per-equipment reading counts and last-seen times over
// the given window and returns the activity rows.
func (s *MaintenanceService) HealthSummary(ctx context.Context, window time.Duration) ([]repositories.EquipmentActivity, error) {
	activity, err := s.readingRepo.EquipmentActivity(ctx, s.now().Add(-window))
	if err != nil {
		return nil, err
	}

	for _, a := range activity {
		event := log.Info().
			Str("equipment_id", a.EquipmentID).
			Int64("readings", a.Readings)
		if a.LastSeen != nil {
			event = event.Time("last_seen", *a.LastSeen)
		}
		event.Msg("Equipment health")
	}

	log.Info().Int("equipment", len(activity)).Dur("window", window).Msg("Equipment health summary completed")
	return activity, nil
}

// CleanupExpired deletes readings past the retention period and resolved
// alerts past theirs. Returns the number of rows removed.
func (s *MaintenanceService) CleanupExpired(ctx context.Context) (int64, error) {
	now := s.now()

	readings, err := s.readingRepo.DeleteOlderThan(ctx, now.AddDate(0, 0, -s.retention.ReadingDays))
	if err != nil {
		return 0, err
	}

	alerts, err := s.alertRepo.DeleteResolvedBefore(ctx, now.AddDate(0, 0, -s.retention.ResolvedAlertDays))
	if err != nil {
		return readings, err
	}

	log.Info().
		Int64("readings_removed", readings).
		Int64("alerts_removed", alerts).
		Msg("Retention cleanup completed")

	return readings + alerts, nil
}
