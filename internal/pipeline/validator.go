package pipeline

import (
	"fmt"
	"math"
	"time"
)

// RejectionReason classifies why a single reading was rejected
type RejectionReason string

const (
	ReasonMissingField     RejectionReason = "MISSING_FIELD"
	ReasonOutOfRange       RejectionReason = "OUT_OF_RANGE"
	ReasonBadTimestamp     RejectionReason = "BAD_TIMESTAMP"
	ReasonUnknownMetric    RejectionReason = "UNKNOWN_METRIC"
	ReasonUnknownEquipment RejectionReason = "UNKNOWN_EQUIPMENT"
)

// Rejection describes one reading that failed validation. Rejected readings
// are retained for quality scoring and reported back to the caller; they are
// never silently dropped.
type Rejection struct {
	Index       int             `json:"index"`
	EquipmentID string          `json:"equipment_id"`
	MetricName  string          `json:"metric_name"`
	Reason      RejectionReason `json:"reason"`
	Detail      string          `json:"detail,omitempty"`
}

// Validator checks single readings against schema and range constraints
type Validator struct {
	cfg Config
}

// NewValidator creates a validator with the given pipeline configuration
func NewValidator(cfg Config) *Validator {
	return &Validator{cfg: cfg}
}

// Check validates one reading against the known-equipment set, the configured
// metric ranges, and the clock-skew tolerance. It returns nil when the reading
// is acceptable, otherwise a Rejection with the reason code set. The caller
// fills in the batch index.
func (v *Validator) Check(r Reading, now time.Time, known map[string]bool) *Rejection {
	if r.EquipmentID == "" {
		return v.reject(r, ReasonMissingField, "equipment_id is empty")
	}
	if r.MetricName == "" {
		return v.reject(r, ReasonMissingField, "metric_name is empty")
	}

	if known != nil && !known[r.EquipmentID] {
		return v.reject(r, ReasonUnknownEquipment, fmt.Sprintf("equipment %q is not registered", r.EquipmentID))
	}

	bounds, ok := v.cfg.MetricRanges[r.MetricName]
	if !ok {
		return v.reject(r, ReasonUnknownMetric, fmt.Sprintf("no range configured for metric %q", r.MetricName))
	}

	if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
		return v.reject(r, ReasonOutOfRange, "value is not a finite number")
	}
	if r.Value < bounds.Min || r.Value > bounds.Max {
		return v.reject(r, ReasonOutOfRange,
			fmt.Sprintf("value %g outside range [%g, %g]", r.Value, bounds.Min, bounds.Max))
	}

	if r.Timestamp.IsZero() {
		return v.reject(r, ReasonBadTimestamp, "timestamp is missing")
	}
	if r.Timestamp.After(now.Add(v.cfg.ClockSkewTolerance)) {
		return v.reject(r, ReasonBadTimestamp,
			fmt.Sprintf("timestamp %s is beyond the clock-skew tolerance", r.Timestamp.UTC().Format(time.RFC3339)))
	}

	return nil
}

func (v *Validator) reject(r Reading, reason RejectionReason, detail string) *Rejection {
	return &Rejection{
		EquipmentID: r.EquipmentID,
		MetricName:  r.MetricName,
		Reason:      reason,
		Detail:      detail,
	}
}
