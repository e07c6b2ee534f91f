package logging

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PanicRecoveriesTotal tracks panic recoveries by component.
	// Exported so other packages can increment it from their own recovery
	// paths.
	PanicRecoveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ttt",
			Name:      "panic_recoveries_total",
			Help:      "Total number of panic recoveries by component",
		},
		[]string{"component"},
	)
)

// RecoverGoRoutine wraps a goroutine with panic recovery and structured
// logging. Use this for all spawned goroutines so one bad event or tick
// cannot take the process down.
//
// The returned function takes a context parameter, allowing the context to be
// passed at the goroutine spawn site rather than captured in the closure:
//
//	go RecoverGoRoutine(logger, "announcer", func(ctx context.Context) {
//	    doWork(ctx)
//	})(ctx)
func RecoverGoRoutine(logger Logger, component string, fn func(context.Context)) func(context.Context) {
	return func(ctx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				PanicRecoveriesTotal.WithLabelValues(component).Inc()

				logger.Error().
					Str(FieldComponent, component).
					Str("panic_value", fmt.Sprintf("%v", r)).
					Str("stack_trace", string(debug.Stack())).
					Msg("PANIC RECOVERED in goroutine")
			}
		}()

		fn(ctx)
	}
}

// RecoverWithLogger wraps a synchronous function with panic recovery and
// logging. The worker uses this around each event handler so a malformed
// event can never kill the consume loop.
//
// Returns the original error from fn, or a new error if a panic occurred.
func RecoverWithLogger(logger Logger, component string, operation string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			PanicRecoveriesTotal.WithLabelValues(component).Inc()

			logger.Error().
				Str(FieldComponent, component).
				Str(FieldOperation, operation).
				Str("panic_value", fmt.Sprintf("%v", r)).
				Str("stack_trace", string(debug.Stack())).
				Msg("PANIC RECOVERED")

			err = fmt.Errorf("panic recovered: %v", r)
		}
	}()

	return fn()
}
