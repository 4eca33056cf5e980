package services

import (
	"context"
	"testing"
	"time"

	"example.com/safetysync/services/telemetry/internal/models"
	"example.com/safetysync/services/telemetry/internal/pipeline"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestReadingWriterConvertsRows(t *testing.T) {
	repo := new(MockReadingRepository)
	repo.On("BulkInsert", mock.Anything, mock.AnythingOfType("[]models.SensorReading")).Return(int64(2), nil)

	writer := NewReadingWriter(repo)

	ts := time.Date(2025, 3, 14, 11, 45, 0, 0, time.UTC)
	inserted, err := writer.BulkInsert(context.Background(), []pipeline.Reading{
		{
			EquipmentID: "PUMP-1",
			MetricName:  "temperature",
			Value:       42.5,
			Unit:        "celsius",
			Timestamp:   ts,
			Metadata:    map[string]string{"firmware": "2.1.0"},
		},
		{
			EquipmentID: "DETECTOR-1",
			MetricName:  "gas_concentration",
			Value:       3.2,
			Timestamp:   ts,
		},
	})

	require.NoError(t, err)
	require.Equal(t, int64(2), inserted)

	rows := repo.Calls[0].Arguments.Get(1).([]models.SensorReading)
	require.Len(t, rows, 2)

	first := rows[0]
	require.Equal(t, "PUMP-1", first.EquipmentID)
	require.Equal(t, "temperature", first.MetricName)
	require.Equal(t, 42.5, first.MetricValue)
	require.Equal(t, "celsius", first.MetricUnit)
	require.Equal(t, models.ReadingStatusValid, first.ReadingStatus)
	require.Equal(t, ts, first.Timestamp)
	require.JSONEq(t, `{"firmware":"2.1.0"}`, string(first.Metadata))
	require.NotEqual(t, first.ID, rows[1].ID)
	require.False(t, first.ReceivedAt.IsZero())

	require.Nil(t, rows[1].Metadata)
}
