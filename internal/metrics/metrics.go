package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Well-known metric names recorded by the service
const (
	BatchesIngested    = "ingestion.batches"
	BatchesFailed      = "ingestion.batches_failed"
	ReadingsAccepted   = "ingestion.readings_accepted"
	ReadingsRejected   = "ingestion.readings_rejected"
	ReadingsDeduped    = "ingestion.readings_deduplicated"
	QueueMessages      = "queue.messages"
	QueueMessagesBad   = "queue.messages_malformed"
	AlertsRaised       = "alerting.alerts_raised"
	CacheHits          = "cache.hits"
	CacheMisses        = "cache.misses"
	IngestTimer        = "ingestion.batch"
	ThresholdScanTimer = "alerting.scan"
)

// TimerSnapshot captures timing information for one named timer
type TimerSnapshot struct {
	Count         int64   `json:"count"`
	TotalTimeMs   int64   `json:"total_time_ms"`
	AverageTimeMs float64 `json:"average_time_ms"`
	MinTimeMs     int64   `json:"min_time_ms"`
	MaxTimeMs     int64   `json:"max_time_ms"`
}

type timer struct {
	count       int64
	totalTimeMs int64
	minTimeMs   int64
	maxTimeMs   int64
}

// Metrics is an in-process metrics collector. Counters and gauges are updated
// atomically; the maps are guarded for lazy creation only.
type Metrics struct {
	mu           sync.RWMutex
	counters     map[string]*int64
	gauges       map[string]*int64
	timers       map[string]*timer
	healthChecks map[string]*int64
	startTime    time.Time
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	return &Metrics{
		counters:     make(map[string]*int64),
		gauges:       make(map[string]*int64),
		timers:       make(map[string]*timer),
		healthChecks: make(map[string]*int64),
		startTime:    time.Now(),
	}
}

// IncrementCounter increments a counter by 1
func (m *Metrics) IncrementCounter(name string) {
	m.IncrementCounterBy(name, 1)
}

// IncrementCounterBy increments a counter by the specified value
func (m *Metrics) IncrementCounterBy(name string, value int64) {
	atomic.AddInt64(m.counter(name), value)
}

// SetGauge sets a gauge to a specific value
func (m *Metrics) SetGauge(name string, value int64) {
	m.mu.RLock()
	gauge, exists := m.gauges[name]
	m.mu.RUnlock()

	if !exists {
		m.mu.Lock()
		if gauge, exists = m.gauges[name]; !exists {
			var g int64
			gauge = &g
			m.gauges[name] = gauge
		}
		m.mu.Unlock()
	}

	atomic.StoreInt64(gauge, value)
}

// RecordDuration records one observation for a named timer
func (m *Metrics) RecordDuration(name string, d time.Duration) {
	ms := d.Milliseconds()

	m.mu.Lock()
	t, exists := m.timers[name]
	if !exists {
		t = &timer{minTimeMs: ms, maxTimeMs: ms}
		m.timers[name] = t
	}
	t.count++
	t.totalTimeMs += ms
	if ms < t.minTimeMs {
		t.minTimeMs = ms
	}
	if ms > t.maxTimeMs {
		t.maxTimeMs = ms
	}
	m.mu.Unlock()
}

// RecordHealthCheck records the health status of a named dependency
func (m *Metrics) RecordHealthCheck(name string, healthy bool) {
	m.mu.Lock()
	h, exists := m.healthChecks[name]
	if !exists {
		var v int64
		h = &v
		m.healthChecks[name] = h
	}
	m.mu.Unlock()

	var value int64
	if healthy {
		value = 1
	}
	atomic.StoreInt64(h, value)
}

// GetHealthChecks returns all recorded health statuses
func (m *Metrics) GetHealthChecks() map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]bool, len(m.healthChecks))
	for name, h := range m.healthChecks {
		out[name] = atomic.LoadInt64(h) == 1
	}
	return out
}

// GetCounter returns the current value of a counter
func (m *Metrics) GetCounter(name string) int64 {
	m.mu.RLock()
	counter, exists := m.counters[name]
	m.mu.RUnlock()
	if !exists {
		return 0
	}
	return atomic.LoadInt64(counter)
}

// GetAllMetrics returns all metrics in a structured format
func (m *Metrics) GetAllMetrics() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counters := make(map[string]int64, len(m.counters))
	for name, c := range m.counters {
		counters[name] = atomic.LoadInt64(c)
	}

	gauges := make(map[string]int64, len(m.gauges))
	for name, g := range m.gauges {
		gauges[name] = atomic.LoadInt64(g)
	}

	timers := make(map[string]TimerSnapshot, len(m.timers))
	for name, t := range m.timers {
		snapshot := TimerSnapshot{
			Count:       t.count,
			TotalTimeMs: t.totalTimeMs,
			MinTimeMs:   t.minTimeMs,
			MaxTimeMs:   t.maxTimeMs,
		}
		if t.count > 0 {
			snapshot.AverageTimeMs = float64(t.totalTimeMs) / float64(t.count)
		}
		timers[name] = snapshot
	}

	healthChecks := make(map[string]bool, len(m.healthChecks))
	for name, h := range m.healthChecks {
		healthChecks[name] = atomic.LoadInt64(h) == 1
	}

	return map[string]interface{}{
		"uptime_seconds": int64(time.Since(m.startTime).Seconds()),
		"counters":       counters,
		"gauges":         gauges,
		"timers":         timers,
		"health_checks":  healthChecks,
	}
}

func (m *Metrics) counter(name string) *int64 {
	m.mu.RLock()
	counter, exists := m.counters[name]
	m.mu.RUnlock()

	if !exists {
		m.mu.Lock()
		// Check again to avoid race conditions
		if counter, exists = m.counters[name]; !exists {
			var c int64
			counter = &c
			m.counters[name] = counter
		}
		m.mu.Unlock()
	}

	return counter
}
