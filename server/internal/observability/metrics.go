package observability

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects per-operation counters for the clock API.
type Metrics struct {
	mu sync.Mutex

	// Counters
	requestTotal  atomic.Int64
	requestFailed atomic.Int64

	// Resolver outcomes
	resolveFound    atomic.Int64
	resolveNotFound atomic.Int64
	resolveStale    atomic.Int64

	operations map[string]*OperationMetrics

	// Recent durations, oldest first
	durations    []time.Duration
	maxDurations int
}

// OperationMetrics represents metrics for a single API operation.
type OperationMetrics struct {
	count         atomic.Int64
	totalDuration atomic.Int64 // milliseconds
	errorCount    atomic.Int64
}

// NewMetrics creates a new metrics collector.
func NewMetrics(maxDurations int) *Metrics {
	if maxDurations <= 0 {
		maxDurations = 1000
	}
	return &Metrics{
		operations:   make(map[string]*OperationMetrics),
		durations:    make([]time.Duration, 0, maxDurations),
		maxDurations: maxDurations,
	}
}

// RecordRequest records a finished request for operation.
func (m *Metrics) RecordRequest(operation string, duration time.Duration, failed bool) {
	m.requestTotal.Add(1)
	om := m.operation(operation)
	om.count.Add(1)
	om.totalDuration.Add(duration.Milliseconds())
	if failed {
		m.requestFailed.Add(1)
		om.errorCount.Add(1)
	}

	m.mu.Lock()
	if len(m.durations) >= m.maxDurations {
		m.durations = m.durations[1:]
	}
	m.durations = append(m.durations, duration)
	m.mu.Unlock()
}

// RecordResolution records how a phrase resolution ended.
func (m *Metrics) RecordResolution(found, stale bool) {
	switch {
	case stale:
		m.resolveStale.Add(1)
	case found:
		m.resolveFound.Add(1)
	default:
		m.resolveNotFound.Add(1)
	}
}

func (m *Metrics) operation(name string) *OperationMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	om, ok := m.operations[name]
	if !ok {
		om = &OperationMetrics{}
		m.operations[name] = om
	}
	return om
}

// Reset resets all metrics (useful for testing).
func (m *Metrics) Reset() {
	m.requestTotal.Store(0)
	m.requestFailed.Store(0)
	m.resolveFound.Store(0)
	m.resolveNotFound.Store(0)
	m.resolveStale.Store(0)

	m.mu.Lock()
	m.operations = make(map[string]*OperationMetrics)
	m.durations = make([]time.Duration, 0, m.maxDurations)
	m.mu.Unlock()
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	ops := make(map[string]*OperationSnapshot, len(m.operations))
	for name, om := range m.operations {
		count := om.count.Load()
		snap := &OperationSnapshot{
			Count:      count,
			ErrorCount: om.errorCount.Load(),
		}
		if count > 0 {
			snap.AverageDurationMs = om.totalDuration.Load() / count
		}
		ops[name] = snap
	}

	return &MetricsSnapshot{
		RequestTotal:    m.requestTotal.Load(),
		RequestFailed:   m.requestFailed.Load(),
		ResolveFound:    m.resolveFound.Load(),
		ResolveNotFound: m.resolveNotFound.Load(),
		ResolveStale:    m.resolveStale.Load(),
		Operations:      ops,
		P50LatencyMs:    percentile(m.durations, 50),
		P95LatencyMs:    percentile(m.durations, 95),
	}
}

// percentile returns the p-th percentile of durations in milliseconds.
func percentile(durations []time.Duration, p int) int64 {
	if len(durations) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), durations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := (len(sorted) - 1) * p / 100
	return sorted[idx].Milliseconds()
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	RequestTotal    int64                         `json:"request_total"`
	RequestFailed   int64                         `json:"request_failed"`
	ResolveFound    int64                         `json:"resolve_found"`
	ResolveNotFound int64                         `json:"resolve_not_found"`
	ResolveStale    int64                         `json:"resolve_stale"`
	Operations      map[string]*OperationSnapshot `json:"operations"`
	P50LatencyMs    int64                         `json:"p50_latency_ms"`
	P95LatencyMs    int64                         `json:"p95_latency_ms"`
}

// OperationSnapshot represents metrics for a single operation.
type OperationSnapshot struct {
	Count             int64 `json:"count"`
	ErrorCount        int64 `json:"error_count"`
	AverageDurationMs int64 `json:"average_duration_ms"`
}

// SuccessRate returns the success rate as a percentage (0-100).
func (s *MetricsSnapshot) SuccessRate() float64 {
	if s.RequestTotal == 0 {
		return 100.0
	}
	return float64(s.RequestTotal-s.RequestFailed) / float64(s.RequestTotal) * 100.0
}
