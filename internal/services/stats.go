package services

import (
	"context"
	"time"

	"example.com/safetysync/services/telemetry/internal/repositories"
)

// IngestionStats summarizes ingestion outcomes over a reporting window
type IngestionStats struct {
	Since           time.Time `json:"since"`
	Batches         int64     `json:"batches"`
	Submitted       int64     `json:"submitted"`
	Accepted        int64     `json:"accepted"`
	Rejected        int64     `json:"rejected"`
	Deduplicated    int64     `json:"deduplicated"`
	Inserted        int64     `json:"inserted"`
	InvalidRate     float64   `json:"invalid_rate"`
	DuplicateRate   float64   `json:"duplicate_rate"`
	QualityScore    float64   `json:"quality_score"`
	AvgCompleteness *float64  `json:"avg_completeness"`
	AvgValidity     *float64  `json:"avg_validity"`
	AvgTimeliness   *float64  `json:"avg_timeliness"`
	AvgUniqueness   *float64  `json:"avg_uniqueness"`
	AvgConsistency  *float64  `json:"avg_consistency"`
}

// StatsService aggregates persisted quality records for reporting
type StatsService struct {
	qualityRepo repositories.QualityRepository
}

// NewStatsService creates a new statistics service
func NewStatsService(qualityRepo repositories.QualityRepository) *StatsService {
	return &StatsService{qualityRepo: qualityRepo}
}

// Stats aggregates quality records created since the given time
func (s *StatsService) Stats(ctx context.Context, since time.Time) (*IngestionStats, error) {
	agg, err := s.qualityRepo.AggregateSince(ctx, since)
	if err != nil {
		return nil, err
	}

	stats := &IngestionStats{
		Since:           since,
		Batches:         agg.Batches,
		Submitted:       agg.Submitted,
		Accepted:        agg.Accepted,
		Rejected:        agg.Rejected,
		Deduplicated:    agg.Deduplicated,
		Inserted:        agg.Inserted,
		AvgCompleteness: agg.AvgCompleteness,
		AvgValidity:     agg.AvgValidity,
		AvgTimeliness:   agg.AvgTimeliness,
		AvgUniqueness:   agg.AvgUniqueness,
		AvgConsistency:  agg.AvgConsistency,
	}

	if agg.Submitted > 0 {
		stats.InvalidRate = float64(agg.Rejected) / float64(agg.Submitted)
		stats.DuplicateRate = float64(agg.Deduplicated) / float64(agg.Submitted)
	}
	stats.QualityScore = CompositeQualityScore(stats.InvalidRate, stats.DuplicateRate)

	return stats, nil
}

// CompositeQualityScore reduces the invalid and duplicate rates to a single
// 0-100 score: 100 - invalid_rate*50 - duplicate_rate*30, floored at zero.
func CompositeQualityScore(invalidRate, duplicateRate float64) float64 {
	score := 100 - invalidRate*50 - duplicateRate*30
	if score < 0 {
		return 0
	}
	return score
}
