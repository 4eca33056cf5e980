package pipeline

import (
	"time"
)

// Reading is one raw sensor measurement submitted for ingestion. The
// (EquipmentID, MetricName, Timestamp) tuple is the identity key used for
// deduplication and enforced by storage.
type Reading struct {
	EquipmentID string            `json:"equipment_id"`
	MetricName  string            `json:"metric_name"`
	Value       float64           `json:"value"`
	Unit        string            `json:"unit,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// identityKey normalizes the dedup tuple so equal instants compare equal
// regardless of wall-clock location or monotonic component.
type identityKey struct {
	equipmentID string
	metricName  string
	unixNano    int64
}

func keyOf(r Reading) identityKey {
	return identityKey{
		equipmentID: r.EquipmentID,
		metricName:  r.MetricName,
		unixNano:    r.Timestamp.UnixNano(),
	}
}
