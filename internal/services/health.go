package services

import (
	"context"

	"example.com/safetysync/services/telemetry/internal/cache"
	"example.com/safetysync/services/telemetry/internal/database"

	"gorm.io/gorm"
)

// HealthService pings the service's backing dependencies
type HealthService struct {
	db    *gorm.DB
	cache *cache.RedisCache
}

// NewHealthService creates a new health service
func NewHealthService(db *gorm.DB, redisCache *cache.RedisCache) *HealthService {
	return &HealthService{
		db:    db,
		cache: redisCache,
	}
}

// CheckHealth pings each dependency and reports its status
func (s *HealthService) CheckHealth(ctx context.Context) map[string]bool {
	checks := map[string]bool{
		"database": database.Ping(ctx, s.db) == nil,
	}
	if s.cache != nil {
		checks["redis"] = s.cache.Ping(ctx) == nil
	}
	return checks
}
