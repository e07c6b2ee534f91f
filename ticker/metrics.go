package ticker

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/intagaming/tic-tac-toe-worker-node/observability"
)

var (
	ticksTotal = observability.TickerFactory.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ttt",
			Subsystem: "ticker",
			Name:      "ticks_total",
			Help:      "Total number of room ticks performed by this instance.",
		},
	)

	staleClaimsTotal = observability.TickerFactory.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ttt",
			Subsystem: "ticker",
			Name:      "stale_claims_total",
			Help:      "Due-queue claims lost to another ticker instance.",
		},
	)

	lockContentionTotal = observability.TickerFactory.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ttt",
			Subsystem: "ticker",
			Name:      "lock_contention_total",
			Help:      "Room tick locks found held by another holder.",
		},
	)

	latePassesTotal = observability.TickerFactory.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ttt",
			Subsystem: "ticker",
			Name:      "late_passes_total",
			Help:      "Scheduling passes that overran their half-tick slot.",
		},
	)

	roomsRemovedTotal = observability.TickerFactory.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ttt",
			Subsystem: "ticker",
			Name:      "rooms_removed_total",
			Help:      "Rooms dropped from the due-timer queue after their last tick.",
		},
	)

	idleTickers = observability.TickerFactory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ttt",
			Subsystem: "ticker",
			Name:      "idle",
			Help:      "Number of in-process ticker loops currently in idle mode.",
		},
	)

	passDurationSeconds = observability.TickerFactory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ttt",
			Subsystem: "ticker",
			Name:      "pass_duration_seconds",
			Help:      "Duration of one scheduling pass over the due-timer queue.",
			Buckets:   observability.FineGrainedLatencyBuckets,
		},
	)
)
