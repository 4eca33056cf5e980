package services

import (
	"context"
	"time"

	"example.com/safetysync/services/telemetry/config"
	"example.com/safetysync/services/telemetry/internal/models"
	"example.com/safetysync/services/telemetry/internal/pipeline"
	"example.com/safetysync/services/telemetry/internal/repositories"
	"example.com/safetysync/services/telemetry/internal/tracing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

func testTracer() tracing.Tracer {
	tracer, _ := tracing.NewTracer(config.TracingConfig{})
	return tracer
}

// MockBatchWriter mocks the pipeline's storage writer
type MockBatchWriter struct {
	mock.Mock
}

func (m *MockBatchWriter) BulkInsert(ctx context.Context, readings []pipeline.Reading) (int64, error) {
	args := m.Called(ctx, readings)
	return args.Get(0).(int64), args.Error(1)
}

// MockQualityRepository mocks the quality record repository
type MockQualityRepository struct {
	mock.Mock
}

func (m *MockQualityRepository) Create(ctx context.Context, record *models.QualityRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockQualityRepository) AggregateSince(ctx context.Context, since time.Time) (*repositories.QualityAggregate, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repositories.QualityAggregate), args.Error(1)
}

// MockReadingRepository mocks the sensor reading repository
type MockReadingRepository struct {
	mock.Mock
}

func (m *MockReadingRepository) BulkInsert(ctx context.Context, readings []models.SensorReading) (int64, error) {
	args := m.Called(ctx, readings)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockReadingRepository) ListSince(ctx context.Context, since time.Time) ([]models.SensorReading, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SensorReading), args.Error(1)
}

func (m *MockReadingRepository) CountForEquipment(ctx context.Context, equipmentID string) (int64, error) {
	args := m.Called(ctx, equipmentID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockReadingRepository) EquipmentActivity(ctx context.Context, since time.Time) ([]repositories.EquipmentActivity, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repositories.EquipmentActivity), args.Error(1)
}

func (m *MockReadingRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockAlertRepository mocks the alert repository
type MockAlertRepository struct {
	mock.Mock
}

func (m *MockAlertRepository) Create(ctx context.Context, alert *models.Alert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

func (m *MockAlertRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Alert, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Alert), args.Error(1)
}

func (m *MockAlertRepository) HasOpen(ctx context.Context, equipmentID, metricName string) (bool, error) {
	args := m.Called(ctx, equipmentID, metricName)
	return args.Bool(0), args.Error(1)
}

func (m *MockAlertRepository) List(ctx context.Context, filter repositories.AlertFilter) ([]models.Alert, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Alert), args.Error(1)
}

func (m *MockAlertRepository) Update(ctx context.Context, alert *models.Alert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

func (m *MockAlertRepository) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockEquipmentRepository mocks the equipment repository
type MockEquipmentRepository struct {
	mock.Mock
}

func (m *MockEquipmentRepository) Create(ctx context.Context, equipment *models.Equipment) error {
	args := m.Called(ctx, equipment)
	return args.Error(0)
}

func (m *MockEquipmentRepository) GetByID(ctx context.Context, id string) (*models.Equipment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Equipment), args.Error(1)
}

func (m *MockEquipmentRepository) List(ctx context.Context, filter repositories.EquipmentFilter) ([]models.Equipment, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.Equipment), args.Get(1).(int64), args.Error(2)
}

func (m *MockEquipmentRepository) Update(ctx context.Context, equipment *models.Equipment) error {
	args := m.Called(ctx, equipment)
	return args.Error(0)
}

func (m *MockEquipmentRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockEquipmentRepository) SetStatus(ctx context.Context, id string, status models.EquipmentStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockEquipmentRepository) KnownActive(ctx context.Context, ids []string) (map[string]bool, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]bool), args.Error(1)
}
