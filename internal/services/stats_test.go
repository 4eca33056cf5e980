package services

import (
	"context"
	"testing"
	"time"

	"example.com/safetysync/services/telemetry/internal/repositories"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCompositeQualityScore(t *testing.T) {
	cases := []struct {
		name          string
		invalidRate   float64
		duplicateRate float64
		want          float64
	}{
		{name: "perfect", invalidRate: 0, duplicateRate: 0, want: 100},
		{name: "some invalid", invalidRate: 0.1, duplicateRate: 0, want: 95},
		{name: "some duplicates", invalidRate: 0, duplicateRate: 0.05, want: 98.5},
		{name: "both", invalidRate: 0.2, duplicateRate: 0.1, want: 87},
		{name: "floored at zero", invalidRate: 1.0, duplicateRate: 2.0, want: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.InDelta(t, tc.want, CompositeQualityScore(tc.invalidRate, tc.duplicateRate), 1e-9)
		})
	}
}

func TestStatsComputesRates(t *testing.T) {
	avg := 0.9
	qualityRepo := new(MockQualityRepository)
	qualityRepo.On("AggregateSince", mock.Anything, mock.Anything).Return(&repositories.QualityAggregate{
		Batches:      4,
		Submitted:    100,
		Accepted:     90,
		Rejected:     10,
		Deduplicated: 5,
		Inserted:     85,
		AvgValidity:  &avg,
	}, nil)

	service := NewStatsService(qualityRepo)

	stats, err := service.Stats(context.Background(), time.Now().Add(-24*time.Hour))

	require.NoError(t, err)
	require.Equal(t, int64(4), stats.Batches)
	require.InDelta(t, 0.1, stats.InvalidRate, 1e-9)
	require.InDelta(t, 0.05, stats.DuplicateRate, 1e-9)
	// 100 - 0.1*50 - 0.05*30
	require.InDelta(t, 93.5, stats.QualityScore, 1e-9)
	require.Equal(t, &avg, stats.AvgValidity)
}

func TestStatsEmptyWindow(t *testing.T) {
	qualityRepo := new(MockQualityRepository)
	qualityRepo.On("AggregateSince", mock.Anything, mock.Anything).Return(&repositories.QualityAggregate{}, nil)

	service := NewStatsService(qualityRepo)

	stats, err := service.Stats(context.Background(), time.Now().Add(-time.Hour))

	require.NoError(t, err)
	require.Zero(t, stats.Batches)
	require.Zero(t, stats.InvalidRate)
	require.InDelta(t, 100.0, stats.QualityScore, 1e-9)
}
