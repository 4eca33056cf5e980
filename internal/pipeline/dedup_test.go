package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDeduplicateLastWriteWins(t *testing.T) {
	ts := testTime.Add(-5 * time.Minute)
	readings := []Reading{
		{EquipmentID: "PUMP-1", MetricName: "temperature", Value: 40, Timestamp: ts},
		{EquipmentID: "COMPRESSOR-2", MetricName: "pressure", Value: 90, Timestamp: ts},
		{EquipmentID: "PUMP-1", MetricName: "temperature", Value: 41, Timestamp: ts},
		{EquipmentID: "PUMP-1", MetricName: "temperature", Value: 42, Timestamp: ts},
	}

	deduped, removed := Deduplicate(readings)

	require.Equal(t, 2, removed)
	require.Len(t, deduped, 2)

	// The kept element occupies the slot of the key's first occurrence but
	// carries the value of the last occurrence.
	require.Equal(t, "PUMP-1", deduped[0].EquipmentID)
	require.Equal(t, 42.0, deduped[0].Value)
	require.Equal(t, "COMPRESSOR-2", deduped[1].EquipmentID)
}

func TestDeduplicateDistinguishesKeyComponents(t *testing.T) {
	ts := testTime.Add(-5 * time.Minute)
	readings := []Reading{
		{EquipmentID: "PUMP-1", MetricName: "temperature", Value: 40, Timestamp: ts},
		{EquipmentID: "PUMP-1", MetricName: "pressure", Value: 40, Timestamp: ts},
		{EquipmentID: "PUMP-2", MetricName: "temperature", Value: 40, Timestamp: ts},
		{EquipmentID: "PUMP-1", MetricName: "temperature", Value: 40, Timestamp: ts.Add(time.Second)},
	}

	deduped, removed := Deduplicate(readings)

	require.Equal(t, 0, removed)
	require.Len(t, deduped, 4)
}

func TestDeduplicateTreatsEqualInstantsAsEqual(t *testing.T) {
	ts := testTime.Add(-5 * time.Minute)
	inOtherZone := ts.In(time.FixedZone("UTC+3", 3*60*60))

	deduped, removed := Deduplicate([]Reading{
		{EquipmentID: "PUMP-1", MetricName: "temperature", Value: 40, Timestamp: ts},
		{EquipmentID: "PUMP-1", MetricName: "temperature", Value: 41, Timestamp: inOtherZone},
	})

	require.Equal(t, 1, removed)
	require.Len(t, deduped, 1)
	require.Equal(t, 41.0, deduped[0].Value)
}

func TestDeduplicateEmptyInput(t *testing.T) {
	deduped, removed := Deduplicate(nil)
	require.Equal(t, 0, removed)
	require.Empty(t, deduped)
}

func TestDeduplicateNoSharedKeysInOutput(t *testing.T) {
	ts := testTime.Add(-time.Minute)
	var readings []Reading
	for i := 0; i < 50; i++ {
		readings = append(readings, Reading{
			EquipmentID: "DETECTOR-3",
			MetricName:  "gas_concentration",
			Value:       float64(i),
			Timestamp:   ts.Add(time.Duration(i%10) * time.Second),
		})
	}

	deduped, removed := Deduplicate(readings)

	require.Equal(t, len(readings), len(deduped)+removed)
	seen := make(map[identityKey]bool)
	for _, r := range deduped {
		key := keyOf(r)
		require.False(t, seen[key], "duplicate identity key in output")
		seen[key] = true
	}
}
