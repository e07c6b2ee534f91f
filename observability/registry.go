package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Separate registries per process role. The ticker and the worker are
// deployed as different commands of the same binary; keeping their metrics in
// dedicated registries lets each expose only its own series while the shared
// registry carries metrics emitted by packages used from both (transport,
// store, queue, lock, notify).
var (
	// TickerRegistry holds ticker-only metrics.
	TickerRegistry = prometheus.NewRegistry()

	// WorkerRegistry holds worker-only metrics.
	WorkerRegistry = prometheus.NewRegistry()

	// SharedRegistry holds metrics from packages used by both roles.
	SharedRegistry = prometheus.DefaultRegisterer

	// TickerFactory creates metrics registered to TickerRegistry.
	TickerFactory = promauto.With(TickerRegistry)

	// WorkerFactory creates metrics registered to WorkerRegistry.
	WorkerFactory = promauto.With(WorkerRegistry)

	// SharedFactory creates metrics registered to the default registry.
	SharedFactory = promauto.With(SharedRegistry)
)

// GathererFor combines a role registry with the default registry so one
// /metrics endpoint serves both role-specific and shared series. Runtime
// collectors (Go, process) come from the default registry side only, so the
// combined gatherer never reports duplicate families.
func GathererFor(role *prometheus.Registry) prometheus.Gatherer {
	return prometheus.Gatherers{role, prometheus.DefaultGatherer}
}
