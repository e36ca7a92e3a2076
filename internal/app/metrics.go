package app

import (
	"sync/atomic"
	"time"
)

// Metrics tracks event-loop performance counters. All fields use atomics
// so the status line can snapshot them without pausing the loop.
type Metrics struct {
	// Frame timing: one frame is handling an event plus flushing the
	// resulting draw.
	frameCount   atomic.Uint64
	frameTotalNs atomic.Int64
	frameMinNs   atomic.Int64
	frameMaxNs   atomic.Int64

	// Event and reload counts
	eventCount  atomic.Uint64
	reloadCount atomic.Uint64

	startTime time.Time
}

// NewMetrics creates a metrics tracker.
func NewMetrics() *Metrics {
	m := &Metrics{startTime: time.Now()}
	// Initialize min to max int64 so the first frame is always smaller.
	m.frameMinNs.Store(1<<63 - 1)
	return m
}

// RecordFrame records one handled frame.
func (m *Metrics) RecordFrame(duration time.Duration) {
	ns := duration.Nanoseconds()

	m.frameCount.Add(1)
	m.frameTotalNs.Add(ns)

	for {
		old := m.frameMinNs.Load()
		if ns >= old {
			break
		}
		if m.frameMinNs.CompareAndSwap(old, ns) {
			break
		}
	}
	for {
		old := m.frameMaxNs.Load()
		if ns <= old {
			break
		}
		if m.frameMaxNs.CompareAndSwap(old, ns) {
			break
		}
	}
}

// RecordEvent records one consumed terminal or watcher event.
func (m *Metrics) RecordEvent() {
	m.eventCount.Add(1)
}

// RecordReload records one data file reload.
func (m *Metrics) RecordReload() {
	m.reloadCount.Add(1)
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	Uptime         time.Duration
	FrameCount     uint64
	AvgFrameTimeNs int64
	MinFrameTimeNs int64
	MaxFrameTimeNs int64
	EventCount     uint64
	ReloadCount    uint64
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	frameCount := m.frameCount.Load()

	var avgFrameNs int64
	if frameCount > 0 {
		avgFrameNs = m.frameTotalNs.Load() / int64(frameCount)
	}

	minFrameNs := m.frameMinNs.Load()
	if minFrameNs == 1<<63-1 {
		minFrameNs = 0
	}

	return MetricsSnapshot{
		Uptime:         time.Since(m.startTime),
		FrameCount:     frameCount,
		AvgFrameTimeNs: avgFrameNs,
		MinFrameTimeNs: minFrameNs,
		MaxFrameTimeNs: m.frameMaxNs.Load(),
		EventCount:     m.eventCount.Load(),
		ReloadCount:    m.reloadCount.Load(),
	}
}

// Reset clears all counters.
func (m *Metrics) Reset() {
	m.frameCount.Store(0)
	m.frameTotalNs.Store(0)
	m.frameMinNs.Store(1<<63 - 1)
	m.frameMaxNs.Store(0)
	m.eventCount.Store(0)
	m.reloadCount.Store(0)
	m.startTime = time.Now()
}
