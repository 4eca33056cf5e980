package services

import (
	"context"
	"testing"
	"time"

	"example.com/safetysync/services/telemetry/config"
	"example.com/safetysync/services/telemetry/internal/repositories"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCleanupExpiredUsesRetentionCutoffs(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	readingRepo := new(MockReadingRepository)
	readingRepo.On("DeleteOlderThan", mock.Anything, now.AddDate(0, 0, -90)).Return(int64(120), nil)

	alertRepo := new(MockAlertRepository)
	alertRepo.On("DeleteResolvedBefore", mock.Anything, now.AddDate(0, 0, -30)).Return(int64(4), nil)

	service := NewMaintenanceService(readingRepo, alertRepo, config.RetentionConfig{
		ReadingDays:       90,
		ResolvedAlertDays: 30,
	})
	service.now = func() time.Time { return now }

	removed, err := service.CleanupExpired(context.Background())

	require.NoError(t, err)
	require.Equal(t, int64(124), removed)
	readingRepo.AssertExpectations(t)
	alertRepo.AssertExpectations(t)
}

func TestHealthSummaryReturnsActivity(t *testing.T) {
	lastSeen := time.Now().Add(-time.Minute)
	readingRepo := new(MockReadingRepository)
	readingRepo.On("EquipmentActivity", mock.Anything, mock.Anything).Return([]repositories.EquipmentActivity{
		{EquipmentID: "PUMP-1", Readings: 360, LastSeen: &lastSeen},
		{EquipmentID: "VALVE-3", Readings: 0},
	}, nil)

	service := NewMaintenanceService(readingRepo, new(MockAlertRepository), config.RetentionConfig{})

	activity, err := service.HealthSummary(context.Background(), 6*time.Hour)

	require.NoError(t, err)
	require.Len(t, activity, 2)
	require.Equal(t, "PUMP-1", activity[0].EquipmentID)
}
