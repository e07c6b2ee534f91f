package worker

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/intagaming/tic-tac-toe-worker-node/observability"
)

var (
	eventsHandledTotal = observability.WorkerFactory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ttt",
			Subsystem: "worker",
			Name:      "events_handled_total",
			Help:      "Queue events handled, by envelope source.",
		},
		[]string{"source"},
	)

	eventsDroppedTotal = observability.WorkerFactory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ttt",
			Subsystem: "worker",
			Name:      "events_dropped_total",
			Help:      "Queue events dropped without a transition, by reason.",
		},
		[]string{"reason"},
	)

	handleDurationSeconds = observability.WorkerFactory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ttt",
			Subsystem: "worker",
			Name:      "handle_duration_seconds",
			Help:      "Time spent handling one queue event end to end.",
			Buckets:   observability.FineGrainedLatencyBuckets,
		},
	)
)
