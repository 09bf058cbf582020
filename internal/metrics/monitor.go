// Package metrics provides the request performance monitor: a bounded ring
// buffer of recent timed operations for the admin panel, plus Prometheus
// collectors for scraping. The monitor is constructed explicitly and
// injected — there is no package-level instance.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultBufferSize bounds the number of recent samples kept in memory.
const DefaultBufferSize = 256

// Sample records one timed operation.
type Sample struct {
	Op       string        `json:"op"`
	Duration time.Duration `json:"duration"`
	OK       bool          `json:"ok"`
	At       time.Time     `json:"at"`
}

// Monitor records operation timings into a fixed-size ring buffer and
// mirrors them to Prometheus. Safe for concurrent use.
type Monitor struct {
	mu   sync.Mutex
	buf  []Sample
	next int
	full bool
	now  func() time.Time

	durations *prometheus.HistogramVec
	failures  *prometheus.CounterVec
}

// NewMonitor creates a Monitor with the given buffer size (0 uses
// DefaultBufferSize) and registers its collectors with reg. Pass a
// dedicated registry in tests to avoid duplicate registration.
func NewMonitor(size int, reg prometheus.Registerer) *Monitor {
	if size <= 0 {
		size = DefaultBufferSize
	}

	m := &Monitor{
		buf: make([]Sample, size),
		now: time.Now,
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "formmaster",
			Name:      "operation_duration_seconds",
			Help:      "Duration of catalog, compatibility, and storage operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "formmaster",
			Name:      "operation_failures_total",
			Help:      "Count of failed operations by name.",
		}, []string{"op"}),
	}

	if reg != nil {
		reg.MustRegister(m.durations, m.failures)
	}
	return m
}

// Record stores one timed operation.
func (m *Monitor) Record(op string, d time.Duration, ok bool) {
	m.durations.WithLabelValues(op).Observe(d.Seconds())
	if !ok {
		m.failures.WithLabelValues(op).Inc()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.buf[m.next] = Sample{Op: op, Duration: d, OK: ok, At: m.now()}
	m.next++
	if m.next == len(m.buf) {
		m.next = 0
		m.full = true
	}
}

// Time runs fn and records its duration under op. The error is passed
// through unchanged.
func (m *Monitor) Time(op string, fn func() error) error {
	start := m.now()
	err := fn()
	m.Record(op, m.now().Sub(start), err == nil)
	return err
}

// Snapshot returns the recorded samples, oldest first. The returned slice
// is a copy — callers may keep it without holding up the monitor.
func (m *Monitor) Snapshot() []Sample {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.full {
		out := make([]Sample, m.next)
		copy(out, m.buf[:m.next])
		return out
	}

	out := make([]Sample, 0, len(m.buf))
	out = append(out, m.buf[m.next:]...)
	out = append(out, m.buf[:m.next]...)
	return out
}
