package notify

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/intagaming/tic-tac-toe-worker-node/observability"
)

const (
	metricsNamespace = "ttt"
	metricsSubsystem = "notify"
)

var (
	publishedTotal = observability.SharedFactory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "published_total",
			Help:      "Total announcements published, by event name",
		},
		[]string{"event"},
	)

	publishFailuresTotal = observability.SharedFactory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "publish_failures_total",
			Help:      "Total announcement publish failures, by event name",
		},
		[]string{"event"},
	)
)
