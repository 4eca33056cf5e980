package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockEquipmentLookup mocks the equipment registry for testing
type MockEquipmentLookup struct {
	mock.Mock
}

func (m *MockEquipmentLookup) Known(ctx context.Context, ids []string) (map[string]bool, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]bool), args.Error(1)
}

// MockBatchWriter mocks the storage writer for testing
type MockBatchWriter struct {
	mock.Mock
}

func (m *MockBatchWriter) BulkInsert(ctx context.Context, readings []Reading) (int64, error) {
	args := m.Called(ctx, readings)
	return args.Get(0).(int64), args.Error(1)
}

func newTestPipeline(lookup EquipmentLookup, writer BatchWriter) *Pipeline {
	p := New(DefaultConfig(), lookup, writer)
	p.now = func() time.Time { return testTime }
	return p
}

func TestIngestCommitsCleanBatch(t *testing.T) {
	writer := new(MockBatchWriter)
	writer.On("BulkInsert", mock.Anything, mock.AnythingOfType("[]pipeline.Reading")).Return(int64(2), nil)

	p := newTestPipeline(nil, writer)
	readings := []Reading{
		testReading(nil),
		testReading(func(r *Reading) { r.MetricName = "pressure"; r.Value = 90; r.Unit = "psi" }),
	}

	result, err := p.Ingest(context.Background(), readings)

	require.NoError(t, err)
	require.Equal(t, StatusCommitted, result.Status)
	require.Equal(t, 2, result.Accepted)
	require.Empty(t, result.Rejected)
	require.Equal(t, int64(2), result.Inserted)
	require.InDelta(t, 1.0, *result.Quality.Validity, 1e-9)
	writer.AssertExpectations(t)
}

func TestIngestAcceptedPlusRejectedEqualsSubmitted(t *testing.T) {
	writer := new(MockBatchWriter)
	writer.On("BulkInsert", mock.Anything, mock.Anything).Return(int64(2), nil)

	p := newTestPipeline(nil, writer)
	readings := []Reading{
		testReading(nil),
		testReading(func(r *Reading) { r.Value = 500 }),
		testReading(func(r *Reading) { r.EquipmentID = "" }),
		testReading(func(r *Reading) { r.MetricName = "pressure"; r.Value = 12; r.Unit = "psi" }),
	}

	result, err := p.Ingest(context.Background(), readings)

	require.NoError(t, err)
	require.Equal(t, StatusPartial, result.Status)
	require.Equal(t, len(readings), result.Accepted+len(result.Rejected))

	reasons := make(map[RejectionReason]int)
	for _, rej := range result.Rejected {
		reasons[rej.Reason]++
	}
	require.Equal(t, 1, reasons[ReasonOutOfRange])
	require.Equal(t, 1, reasons[ReasonMissingField])
}

// Batch of three readings where two share an identity key: one duplicate is
// removed, two readings are accepted, and the uniqueness score is 2/3.
func TestIngestDeduplicatesSharedIdentityKey(t *testing.T) {
	ts := testTime.Add(-15 * time.Minute)

	writer := new(MockBatchWriter)
	writer.On("BulkInsert", mock.Anything, mock.MatchedBy(func(readings []Reading) bool {
		return len(readings) == 2
	})).Return(int64(2), nil)

	lookup := new(MockEquipmentLookup)
	lookup.On("Known", mock.Anything, []string{"PUMP-1", "COMPRESSOR-2"}).
		Return(map[string]bool{"PUMP-1": true, "COMPRESSOR-2": true}, nil)

	p := newTestPipeline(lookup, writer)
	readings := []Reading{
		{EquipmentID: "PUMP-1", MetricName: "temperature", Value: 40.1, Unit: "celsius", Timestamp: ts},
		{EquipmentID: "PUMP-1", MetricName: "temperature", Value: 40.4, Unit: "celsius", Timestamp: ts},
		{EquipmentID: "COMPRESSOR-2", MetricName: "pressure", Value: 88, Unit: "psi", Timestamp: ts},
	}

	result, err := p.Ingest(context.Background(), readings)

	require.NoError(t, err)
	require.Equal(t, 1, result.DeduplicatedCount)
	require.Equal(t, 3, result.Accepted)
	require.InDelta(t, 2.0/3.0, *result.Quality.Uniqueness, 1e-9)
	require.Equal(t, StatusCommitted, result.Status)
	writer.AssertExpectations(t)
	lookup.AssertExpectations(t)
}

func TestIngestRejectsUnknownEquipment(t *testing.T) {
	lookup := new(MockEquipmentLookup)
	lookup.On("Known", mock.Anything, mock.Anything).Return(map[string]bool{"PUMP-1": true}, nil)

	writer := new(MockBatchWriter)
	writer.On("BulkInsert", mock.Anything, mock.Anything).Return(int64(1), nil)

	p := newTestPipeline(lookup, writer)
	readings := []Reading{
		testReading(nil),
		testReading(func(r *Reading) { r.EquipmentID = "GHOST-9" }),
	}

	result, err := p.Ingest(context.Background(), readings)

	require.NoError(t, err)
	require.Equal(t, 1, result.Accepted)
	require.Len(t, result.Rejected, 1)
	require.Equal(t, ReasonUnknownEquipment, result.Rejected[0].Reason)
	require.Equal(t, "GHOST-9", result.Rejected[0].EquipmentID)
}

func TestIngestEmptyBatchIsSchemaError(t *testing.T) {
	p := newTestPipeline(nil, new(MockBatchWriter))

	result, err := p.Ingest(context.Background(), nil)

	require.Nil(t, result)
	require.ErrorIs(t, err, ErrEmptyBatch)
}

func TestIngestOversizedBatchIsSchemaError(t *testing.T) {
	writer := new(MockBatchWriter)
	p := New(Config{MaxBatchSize: 2}, nil, writer)
	p.now = func() time.Time { return testTime }

	readings := []Reading{testReading(nil), testReading(nil), testReading(nil)}
	result, err := p.Ingest(context.Background(), readings)

	require.Nil(t, result)
	require.ErrorIs(t, err, ErrBatchTooLarge)
	writer.AssertNotCalled(t, "BulkInsert", mock.Anything, mock.Anything)
}

func TestIngestFullyRejectedBatchSkipsWrite(t *testing.T) {
	writer := new(MockBatchWriter)

	p := newTestPipeline(nil, writer)
	readings := []Reading{
		testReading(func(r *Reading) { r.Value = 900 }),
		testReading(func(r *Reading) { r.Timestamp = time.Time{} }),
	}

	result, err := p.Ingest(context.Background(), readings)

	require.NoError(t, err)
	require.Equal(t, StatusRejected, result.Status)
	require.Equal(t, 0, result.Accepted)
	require.Len(t, result.Rejected, 2)
	require.Zero(t, result.Inserted)
	writer.AssertNotCalled(t, "BulkInsert", mock.Anything, mock.Anything)
}

func TestIngestStorageFailureFailsWholeBatch(t *testing.T) {
	writer := new(MockBatchWriter)
	writer.On("BulkInsert", mock.Anything, mock.Anything).Return(int64(0), errors.New("connection refused"))

	p := newTestPipeline(nil, writer)
	readings := []Reading{
		testReading(nil),
		testReading(func(r *Reading) { r.Value = 500 }),
	}

	result, err := p.Ingest(context.Background(), readings)

	require.ErrorIs(t, err, ErrStorageUnavailable)
	require.NotNil(t, result)
	require.Equal(t, StatusFailed, result.Status)

	// Counts and quality are still reported so the caller can distinguish a
	// transient fault from data rejection.
	require.Equal(t, 1, result.Accepted)
	require.Len(t, result.Rejected, 1)
	require.NotNil(t, result.Quality.Validity)
}

func TestIngestLookupFailureIsTransient(t *testing.T) {
	lookup := new(MockEquipmentLookup)
	lookup.On("Known", mock.Anything, mock.Anything).Return(nil, errors.New("registry down"))

	writer := new(MockBatchWriter)
	p := newTestPipeline(lookup, writer)

	result, err := p.Ingest(context.Background(), []Reading{testReading(nil)})

	require.Nil(t, result)
	require.ErrorIs(t, err, ErrStorageUnavailable)
	writer.AssertNotCalled(t, "BulkInsert", mock.Anything, mock.Anything)
}

// Re-ingesting a batch whose identity keys already exist inserts no new rows
// and still commits, so whole-batch retries are safe.
func TestIngestReplayInsertsNothing(t *testing.T) {
	writer := new(MockBatchWriter)
	writer.On("BulkInsert", mock.Anything, mock.Anything).Return(int64(0), nil)

	p := newTestPipeline(nil, writer)
	readings := []Reading{testReading(nil)}

	result, err := p.Ingest(context.Background(), readings)

	require.NoError(t, err)
	require.Equal(t, StatusCommitted, result.Status)
	require.Equal(t, 1, result.Accepted)
	require.Zero(t, result.Inserted)
}
