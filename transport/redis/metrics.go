package redis

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/intagaming/tic-tac-toe-worker-node/observability"
)

const (
	metricsNamespace = "ttt"
	metricsSubsystem = "transport_redis"
)

var (
	// Publisher metrics

	publishedTotal = observability.SharedFactory.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "published_total",
			Help:      "Total number of events published to the events stream",
		},
	)

	publishErrorsTotal = observability.SharedFactory.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "publish_errors_total",
			Help:      "Total number of event publish errors",
		},
	)

	// Consumer metrics

	consumedTotal = observability.SharedFactory.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "consumed_total",
			Help:      "Total number of events consumed from the events stream",
		},
	)

	consumeErrorsTotal = observability.SharedFactory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "consume_errors_total",
			Help:      "Total number of consume errors",
		},
		[]string{"error_type"},
	)

	ackedTotal = observability.SharedFactory.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "acked_total",
			Help:      "Total number of events acknowledged",
		},
	)

	claimedTotal = observability.SharedFactory.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "claimed_total",
			Help:      "Total number of events claimed from idle consumers",
		},
	)

	// Reconnection metrics

	redisReconnectionAttempts = observability.SharedFactory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "reconnection_attempts_total",
			Help:      "Total Redis reconnection attempts by component",
		},
		[]string{"component"},
	)

	redisReconnectionSuccess = observability.SharedFactory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "reconnection_success_total",
			Help:      "Successful Redis reconnections by component",
		},
		[]string{"component"},
	)
)
