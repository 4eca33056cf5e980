package pipeline

import (
	"math"
	"time"
)

// QualityReport is the five-metric data-quality profile of one batch. Scores
// are ratios in [0,1] over the total submitted count; they are nil for an
// empty batch, where no ratio is defined.
type QualityReport struct {
	Completeness *float64 `json:"completeness"`
	Validity     *float64 `json:"validity"`
	Timeliness   *float64 `json:"timeliness"`
	Uniqueness   *float64 `json:"uniqueness"`
	Consistency  *float64 `json:"consistency"`
	Submitted    int      `json:"submitted"`
	Accepted     int      `json:"accepted"`
	Rejected     int      `json:"rejected"`
	Deduplicated int      `json:"deduplicated"`
}

// Scorer computes quality profiles. Scoring is advisory: it never blocks
// ingestion and has no side effects.
type Scorer struct {
	cfg Config
}

// NewScorer creates a scorer with the given pipeline configuration
func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score computes the quality profile for one batch. It receives the original
// submitted readings, the validation rejections, the count of duplicates
// removed, and the ingestion time used as the reference for timeliness.
func (s *Scorer) Score(readings []Reading, rejections []Rejection, deduplicated int, now time.Time) QualityReport {
	total := len(readings)
	report := QualityReport{
		Submitted:    total,
		Rejected:     len(rejections),
		Accepted:     total - len(rejections),
		Deduplicated: deduplicated,
	}
	if total == 0 {
		return report
	}

	rejected := make(map[int]bool, len(rejections))
	for _, rej := range rejections {
		rejected[rej.Index] = true
	}

	complete := 0
	timely := 0
	earliest := now.Add(-s.cfg.FreshnessWindow)
	latest := now.Add(s.cfg.ClockSkewTolerance)
	for i, r := range readings {
		if !rejected[i] && r.Unit != "" {
			complete++
		}
		if !r.Timestamp.IsZero() && !r.Timestamp.Before(earliest) && !r.Timestamp.After(latest) {
			timely++
		}
	}

	report.Completeness = ratio(complete, total)
	report.Validity = ratio(report.Accepted, total)
	report.Timeliness = ratio(timely, total)
	report.Uniqueness = ratio(total-deduplicated, total)
	report.Consistency = ratio(s.countConsistent(readings), total)

	return report
}

// countConsistent cross-checks each value against the mean of its
// (equipment, metric) group within the batch. A value is consistent when it
// lies within ConsistencySigma standard deviations of the group mean;
// single-sample and zero-deviation groups are trivially consistent.
func (s *Scorer) countConsistent(readings []Reading) int {
	type groupKey struct {
		equipmentID string
		metricName  string
	}

	groups := make(map[groupKey][]float64)
	for _, r := range readings {
		if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
			continue
		}
		key := groupKey{equipmentID: r.EquipmentID, metricName: r.MetricName}
		groups[key] = append(groups[key], r.Value)
	}

	type stats struct {
		mean   float64
		stddev float64
	}
	groupStats := make(map[groupKey]stats, len(groups))
	for key, values := range groups {
		sum := 0.0
		for _, v := range values {
			sum += v
		}
		mean := sum / float64(len(values))

		variance := 0.0
		for _, v := range values {
			d := v - mean
			variance += d * d
		}
		variance /= float64(len(values))

		groupStats[key] = stats{mean: mean, stddev: math.Sqrt(variance)}
	}

	consistent := 0
	for _, r := range readings {
		if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
			continue
		}
		st := groupStats[groupKey{equipmentID: r.EquipmentID, metricName: r.MetricName}]
		if math.Abs(r.Value-st.mean) <= s.cfg.ConsistencySigma*st.stddev {
			consistent++
		}
	}
	return consistent
}

func ratio(n, total int) *float64 {
	v := float64(n) / float64(total)
	return &v
}
