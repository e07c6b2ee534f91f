package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "ttt"
	metricsSubsystem = "observability"
)

// FineGrainedLatencyBuckets provides sub-millisecond to multi-second
// measurement. Use for: Redis round trips, event handling, tick
// processing.
// Buckets: 1ms, 2ms, 5ms, 10ms, 25ms, 50ms, 100ms, 250ms, 500ms, 1s, 2.5s, 5s, 10s, 30s
var FineGrainedLatencyBuckets = []float64{0.001, 0.002, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// StartupDurationSeconds records how long each command's bootstrap took.
var StartupDurationSeconds = SharedFactory.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "startup_duration_seconds",
		Help:      "Time taken to start each component",
	},
	[]string{"component"},
)

// Timer measures elapsed time for recording into gauges and histograms.
type Timer struct {
	startTime time.Time
}

// NewTimer starts a new timer.
func NewTimer() *Timer {
	return &Timer{startTime: time.Now()}
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.startTime)
}

// ObserveStartup records the elapsed time as the component's startup
// duration.
func (t *Timer) ObserveStartup(component string) {
	StartupDurationSeconds.WithLabelValues(component).Set(t.Duration().Seconds())
}
