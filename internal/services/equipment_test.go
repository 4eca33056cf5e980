package services

import (
	"context"
	"testing"

	"example.com/safetysync/services/telemetry/internal/metrics"
	"example.com/safetysync/services/telemetry/internal/models"
	"example.com/safetysync/services/telemetry/internal/repositories"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newEquipmentService(repo *MockEquipmentRepository, readingRepo *MockReadingRepository) *EquipmentService {
	return NewEquipmentService(repo, readingRepo, nil, metrics.NewMetrics(), testTracer())
}

func TestEquipmentCreateDefaultsStatus(t *testing.T) {
	repo := new(MockEquipmentRepository)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*models.Equipment")).Return(nil)

	service := newEquipmentService(repo, new(MockReadingRepository))

	equipment := &models.Equipment{ID: "PUMP-1", Name: "Feed pump", Type: models.EquipmentTypePump}
	require.NoError(t, service.Create(context.Background(), equipment))
	require.Equal(t, models.EquipmentStatusActive, equipment.Status)
	repo.AssertExpectations(t)
}

func TestEquipmentCreateRequiresID(t *testing.T) {
	service := newEquipmentService(new(MockEquipmentRepository), new(MockReadingRepository))

	err := service.Create(context.Background(), &models.Equipment{Name: "nameless"})
	require.Error(t, err)
}

func TestEquipmentDeleteRefusedWithReadings(t *testing.T) {
	repo := new(MockEquipmentRepository)
	readingRepo := new(MockReadingRepository)
	readingRepo.On("CountForEquipment", mock.Anything, "PUMP-1").Return(int64(12), nil)

	service := newEquipmentService(repo, readingRepo)

	err := service.Delete(context.Background(), "PUMP-1")
	require.Error(t, err)
	require.True(t, errors.Is(err, repositories.ErrHasReadings))
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestEquipmentDeleteWithoutReadings(t *testing.T) {
	repo := new(MockEquipmentRepository)
	repo.On("Delete", mock.Anything, "VALVE-3").Return(nil)
	readingRepo := new(MockReadingRepository)
	readingRepo.On("CountForEquipment", mock.Anything, "VALVE-3").Return(int64(0), nil)

	service := newEquipmentService(repo, readingRepo)

	require.NoError(t, service.Delete(context.Background(), "VALVE-3"))
	repo.AssertExpectations(t)
}

func TestEquipmentDecommission(t *testing.T) {
	repo := new(MockEquipmentRepository)
	repo.On("SetStatus", mock.Anything, "PUMP-1", models.EquipmentStatusDecommissioned).Return(nil)

	service := newEquipmentService(repo, new(MockReadingRepository))

	require.NoError(t, service.Decommission(context.Background(), "PUMP-1"))
	repo.AssertExpectations(t)
}

func TestEquipmentKnownDelegatesToRepository(t *testing.T) {
	repo := new(MockEquipmentRepository)
	repo.On("KnownActive", mock.Anything, []string{"PUMP-1", "GHOST-9"}).
		Return(map[string]bool{"PUMP-1": true}, nil)

	service := newEquipmentService(repo, new(MockReadingRepository))

	known, err := service.Known(context.Background(), []string{"PUMP-1", "GHOST-9"})
	require.NoError(t, err)
	require.True(t, known["PUMP-1"])
	require.False(t, known["GHOST-9"])
}
