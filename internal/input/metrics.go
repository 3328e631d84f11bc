package input

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/silverkey/internal/input/key"
	"github.com/dshills/silverkey/internal/input/keymap"
)

const latencySamples = 1000

// Metrics tracks engine activity and processing latency.
// It is safe for concurrent use.
type Metrics struct {
	// Transition counters
	presses   atomic.Uint64
	releases  atomic.Uint64
	blurs     atomic.Uint64
	unknown   atomic.Uint64
	expiries  atomic.Uint64
	throttled atomic.Uint64

	// unidentified counts presses that resolved to "Unidentified".
	unidentified atomic.Uint64

	// uncancelable counts suppressed keys the host could not cancel.
	uncancelable atomic.Uint64

	// Fires per category
	keyFires      atomic.Uint64
	sequenceFires atomic.Uint64
	shortcutFires atomic.Uint64
	blurFires     atomic.Uint64

	mu         sync.Mutex
	latencies  []time.Duration
	latencyIdx int

	peakLatency atomic.Int64

	startTime time.Time
	enabled   atomic.Bool
}

// NewMetrics creates a new metrics tracker.
func NewMetrics() *Metrics {
	m := &Metrics{
		latencies: make([]time.Duration, latencySamples),
		startTime: time.Now(),
	}
	m.enabled.Store(true)
	return m
}

// SetEnabled enables or disables collection.
func (m *Metrics) SetEnabled(enabled bool) {
	m.enabled.Store(enabled)
}

// IsEnabled returns whether collection is enabled.
func (m *Metrics) IsEnabled() bool {
	return m.enabled.Load()
}

// recordTransition counts one processed transition and its latency.
func (m *Metrics) recordTransition(out Outcome, latency time.Duration) {
	if !m.enabled.Load() {
		return
	}

	switch out.Type {
	case key.EventDown:
		m.presses.Add(1)
	case key.EventUp:
		m.releases.Add(1)
	case key.EventBlur:
		m.blurs.Add(1)
	default:
		m.unknown.Add(1)
	}
	if out.Uncancelable {
		m.uncancelable.Add(1)
	}
	if out.Key == key.KeyUnidentified && out.Type == key.EventDown {
		m.unidentified.Add(1)
	}

	switch out.Fired {
	case keymap.CategoryKey:
		if out.Type == key.EventBlur {
			m.blurFires.Add(1)
		} else {
			m.keyFires.Add(1)
		}
	case keymap.CategorySequence:
		m.sequenceFires.Add(1)
	case keymap.CategoryShortcut:
		m.shortcutFires.Add(1)
	}

	ns := latency.Nanoseconds()
	for {
		current := m.peakLatency.Load()
		if ns <= current || m.peakLatency.CompareAndSwap(current, ns) {
			break
		}
	}

	m.mu.Lock()
	m.latencies[m.latencyIdx] = latency
	m.latencyIdx = (m.latencyIdx + 1) % len(m.latencies)
	m.mu.Unlock()
}

func (m *Metrics) recordExpiry() {
	if m.enabled.Load() {
		m.expiries.Add(1)
	}
}

func (m *Metrics) recordThrottled() {
	if m.enabled.Load() {
		m.throttled.Add(1)
	}
}

// MetricsSnapshot is a point-in-time view of the metrics.
type MetricsSnapshot struct {
	Presses      uint64
	Releases     uint64
	Blurs        uint64
	Unknown      uint64
	Expiries     uint64
	Throttled    uint64
	Unidentified uint64
	Uncancelable uint64

	KeyFires      uint64
	SequenceFires uint64
	ShortcutFires uint64
	BlurFires     uint64

	AvgLatency  time.Duration
	MaxLatency  time.Duration
	P99Latency  time.Duration
	PeakLatency time.Duration

	TransitionsPerSecond float64
	Uptime               time.Duration
}

// Fires returns the total number of fired bindings.
func (s MetricsSnapshot) Fires() uint64 {
	return s.KeyFires + s.SequenceFires + s.ShortcutFires + s.BlurFires
}

// Snapshot returns a point-in-time view of all metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	latencies := slices.Clone(m.latencies)
	start := m.startTime
	m.mu.Unlock()

	snap := MetricsSnapshot{
		Presses:       m.presses.Load(),
		Releases:      m.releases.Load(),
		Blurs:         m.blurs.Load(),
		Unknown:       m.unknown.Load(),
		Expiries:      m.expiries.Load(),
		Throttled:     m.throttled.Load(),
		Unidentified:  m.unidentified.Load(),
		Uncancelable:  m.uncancelable.Load(),
		KeyFires:      m.keyFires.Load(),
		SequenceFires: m.sequenceFires.Load(),
		ShortcutFires: m.shortcutFires.Load(),
		BlurFires:     m.blurFires.Load(),
		PeakLatency:   time.Duration(m.peakLatency.Load()),
		Uptime:        time.Since(start),
	}

	if snap.Uptime > 0 {
		total := snap.Presses + snap.Releases + snap.Blurs
		snap.TransitionsPerSecond = float64(total) / snap.Uptime.Seconds()
	}
	snap.AvgLatency, snap.MaxLatency, snap.P99Latency = latencyStats(latencies)
	return snap
}

// latencyStats computes average, max and p99 over the recorded samples.
func latencyStats(latencies []time.Duration) (avg, maxLat, p99 time.Duration) {
	valid := make([]time.Duration, 0, len(latencies))
	for _, l := range latencies {
		if l > 0 {
			valid = append(valid, l)
		}
	}
	if len(valid) == 0 {
		return 0, 0, 0
	}

	slices.Sort(valid)
	var sum time.Duration
	for _, l := range valid {
		sum += l
	}
	avg = sum / time.Duration(len(valid))
	maxLat = valid[len(valid)-1]

	idx := int(float64(len(valid)) * 0.99)
	if idx >= len(valid) {
		idx = len(valid) - 1
	}
	return avg, maxLat, valid[idx]
}

// Reset clears all metrics.
func (m *Metrics) Reset() {
	for _, c := range []*atomic.Uint64{
		&m.presses, &m.releases, &m.blurs, &m.unknown, &m.expiries, &m.throttled,
		&m.unidentified, &m.uncancelable,
		&m.keyFires, &m.sequenceFires, &m.shortcutFires, &m.blurFires,
	} {
		c.Store(0)
	}
	m.peakLatency.Store(0)

	m.mu.Lock()
	m.latencies = make([]time.Duration, latencySamples)
	m.latencyIdx = 0
	m.startTime = time.Now()
	m.mu.Unlock()
}

// HealthStatus summarizes whether the engine keeps up with input.
type HealthStatus struct {
	Healthy          bool
	Uncancelable     uint64
	PeakLatency      time.Duration
	LatencyThreshold time.Duration
	Message          string
}

// HealthCheck reports unhealthy when processing latency exceeded the
// threshold. Uncancelable events are reported but do not fail the check.
func (m *Metrics) HealthCheck(latencyThreshold time.Duration) HealthStatus {
	status := HealthStatus{
		Healthy:          true,
		Uncancelable:     m.uncancelable.Load(),
		PeakLatency:      time.Duration(m.peakLatency.Load()),
		LatencyThreshold: latencyThreshold,
		Message:          "healthy",
	}
	if status.PeakLatency > latencyThreshold {
		status.Healthy = false
		status.Message = "latency threshold exceeded"
	}
	return status
}
