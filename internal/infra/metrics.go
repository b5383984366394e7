package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety. A nil *Metrics records nothing.
type Metrics struct {
	cacheHits         atomic.Uint64
	cacheMisses       atomic.Uint64
	remoteRequests    atomic.Uint64
	transientFailures atomic.Uint64
	confirmedNegative atomic.Uint64
	renderEscalations atomic.Uint64

	// Latency tracking
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64
}

// NewMetrics creates an empty metrics set
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordCacheHit records a fresh cache entry served without a network call.
func (m *Metrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Add(1)
}

// RecordCacheMiss records an absent or stale cache entry.
func (m *Metrics) RecordCacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Add(1)
}

// RecordRequest records one remote call and its latency.
func (m *Metrics) RecordRequest(latency time.Duration) {
	if m == nil {
		return
	}
	m.remoteRequests.Add(1)
	m.latencySumNs.Add(latency.Nanoseconds())
	m.latencyCount.Add(1)
}

// RecordTransient records a failure that was not cached.
func (m *Metrics) RecordTransient() {
	if m == nil {
		return
	}
	m.transientFailures.Add(1)
}

// RecordNegative records a confirmed negative written to the cache.
func (m *Metrics) RecordNegative() {
	if m == nil {
		return
	}
	m.confirmedNegative.Add(1)
}

// RecordEscalation records a render escalation attempt.
func (m *Metrics) RecordEscalation() {
	if m == nil {
		return
	}
	m.renderEscalations.Add(1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	CacheHits         uint64
	CacheMisses       uint64
	RemoteRequests    uint64
	TransientFailures uint64
	ConfirmedNegative uint64
	RenderEscalations uint64
	AvgLatency        time.Duration
	Timestamp         time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{Timestamp: time.Now()}
	}

	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		CacheHits:         m.cacheHits.Load(),
		CacheMisses:       m.cacheMisses.Load(),
		RemoteRequests:    m.remoteRequests.Load(),
		TransientFailures: m.transientFailures.Load(),
		ConfirmedNegative: m.confirmedNegative.Load(),
		RenderEscalations: m.renderEscalations.Load(),
		AvgLatency:        time.Duration(avgLatency),
		Timestamp:         time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.cacheHits.Store(0)
	m.cacheMisses.Store(0)
	m.remoteRequests.Store(0)
	m.transientFailures.Store(0)
	m.confirmedNegative.Store(0)
	m.renderEscalations.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
}
