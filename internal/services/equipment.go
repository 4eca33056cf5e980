package services

import (
	"context"

	"example.com/safetysync/services/telemetry/internal/cache"
	"example.com/safetysync/services/telemetry/internal/metrics"
	"example.com/safetysync/services/telemetry/internal/models"
	"example.com/safetysync/services/telemetry/internal/repositories"
	"example.com/safetysync/services/telemetry/internal/tracing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// EquipmentService manages the equipment registry. Reads go through a
// read-through Redis cache; mutations invalidate the cached entry.
type EquipmentService struct {
	repo        repositories.EquipmentRepository
	readingRepo repositories.ReadingRepository
	cache       *cache.RedisCache
	metrics     *metrics.Metrics
	tracer      tracing.Tracer
}

// NewEquipmentService creates a new equipment service
func NewEquipmentService(
	repo repositories.EquipmentRepository,
	readingRepo repositories.ReadingRepository,
	redisCache *cache.RedisCache,
	metricsCollector *metrics.Metrics,
	tracer tracing.Tracer,
) *EquipmentService {
	return &EquipmentService{
		repo:        repo,
		readingRepo: readingRepo,
		cache:       redisCache,
		metrics:     metricsCollector,
		tracer:      tracer,
	}
}

// Create registers a new piece of equipment
func (s *EquipmentService) Create(ctx context.Context, equipment *models.Equipment) error {
	if equipment.ID == "" {
		return errors.New("equipment id is required")
	}
	if equipment.Status == "" {
		equipment.Status = models.EquipmentStatusActive
	}

	if err := s.repo.Create(ctx, equipment); err != nil {
		return err
	}

	log.Info().Str("equipment_id", equipment.ID).Str("type", string(equipment.Type)).Msg("Equipment registered")
	return nil
}

// GetByID returns one piece of equipment, from cache when possible
func (s *EquipmentService) GetByID(ctx context.Context, id string) (*models.Equipment, error) {
	key := cache.GetEquipmentCacheKey(id)

	if s.cache != nil {
		var cached models.Equipment
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			s.metrics.IncrementCounter(metrics.CacheHits)
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Warn().Err(err).Str("equipment_id", id).Msg("Equipment cache read failed")
		}
		s.metrics.IncrementCounter(metrics.CacheMisses)
	}

	equipment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, equipment); err != nil {
			log.Warn().Err(err).Str("equipment_id", id).Msg("Equipment cache write failed")
		}
	}
	return equipment, nil
}

// List returns equipment matching the filter with a total count
func (s *EquipmentService) List(ctx context.Context, filter repositories.EquipmentFilter) ([]models.Equipment, int64, error) {
	return s.repo.List(ctx, filter)
}

// Update modifies a registered piece of equipment
func (s *EquipmentService) Update(ctx context.Context, equipment *models.Equipment) error {
	if err := s.repo.Update(ctx, equipment); err != nil {
		return err
	}
	s.invalidate(ctx, equipment.ID)
	return nil
}

// Delete removes equipment from the registry. Equipment that still has
// readings attached cannot be deleted; it should be decommissioned instead.
func (s *EquipmentService) Delete(ctx context.Context, id string) error {
	count, err := s.readingRepo.CountForEquipment(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return errors.Wrapf(repositories.ErrHasReadings, "equipment %s has %d readings", id, count)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)

	log.Info().Str("equipment_id", id).Msg("Equipment deleted")
	return nil
}

// Decommission marks equipment as out of service. Its readings are retained
// but new readings for it are rejected by validation.
func (s *EquipmentService) Decommission(ctx context.Context, id string) error {
	if err := s.repo.SetStatus(ctx, id, models.EquipmentStatusDecommissioned); err != nil {
		return err
	}
	s.invalidate(ctx, id)

	log.Info().Str("equipment_id", id).Msg("Equipment decommissioned")
	return nil
}

// Known resolves which ids belong to registered, non-decommissioned
// equipment. It satisfies the pipeline's EquipmentLookup.
func (s *EquipmentService) Known(ctx context.Context, ids []string) (map[string]bool, error) {
	return s.repo.KnownActive(ctx, ids)
}

func (s *EquipmentService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cache.GetEquipmentCacheKey(id)); err != nil {
		log.Warn().Err(err).Str("equipment_id", id).Msg("Equipment cache invalidation failed")
	}
}
