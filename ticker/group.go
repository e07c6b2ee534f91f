package ticker

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/intagaming/tic-tac-toe-worker-node/lock"
	"github.com/intagaming/tic-tac-toe-worker-node/logging"
	"github.com/intagaming/tic-tac-toe-worker-node/queue"
)

// Group runs several ticker loops in one process. Each loop gets its own
// identity, so the logs of colocated loops are distinguishable, and a panic
// in one loop is contained and restarted without touching the others.
type Group struct {
	logger   logging.Logger
	dueQueue *queue.DueQueue
	locks    *lock.Locker
	tick     TickFunc
	opts     Options

	// tickers tracks the live loops by instance ID.
	tickers *xsync.Map[string, *Ticker]
	wg      sync.WaitGroup
}

// NewGroup creates a group of ticker loops sharing one queue and lock set.
func NewGroup(logger logging.Logger, dueQueue *queue.DueQueue, locks *lock.Locker, tick TickFunc, opts Options) *Group {
	return &Group{
		logger:   logging.ForComponent(logger, logging.ComponentTickerGroup),
		dueQueue: dueQueue,
		locks:    locks,
		tick:     tick,
		opts:     opts,
		tickers:  xsync.NewMap[string, *Ticker](),
	}
}

// Start launches count loops and returns immediately. Loops run until the
// context is cancelled; a panicking loop is logged and restarted with a
// fresh identity.
func (g *Group) Start(ctx context.Context, count int) error {
	if count < 1 {
		return fmt.Errorf("ticker count must be at least 1, got %d", count)
	}
	for i := 0; i < count; i++ {
		g.launch(ctx)
	}
	g.logger.Info().Int(logging.FieldCount, count).Msg("ticker group started")
	return nil
}

func (g *Group) launch(ctx context.Context) {
	instanceID := uuid.NewString()
	logger := logging.ForInstance(g.logger, instanceID)
	t := New(logger, g.dueQueue, g.locks, g.tick, g.opts)
	g.tickers.Store(instanceID, t)

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer g.tickers.Delete(instanceID)

		run := logging.RecoverGoRoutine(logger, logging.ComponentTicker, func(ctx context.Context) {
			_ = t.Run(ctx)
		})
		run(ctx)

		if ctx.Err() == nil {
			// Run only returns on cancellation, so getting here means the
			// loop panicked. Replace it.
			logger.Warn().Msg("ticker loop died, launching replacement")
			g.launch(ctx)
		}
	}()
}

// Len reports how many loops are currently live.
func (g *Group) Len() int {
	return g.tickers.Size()
}

// Wait blocks until every loop has exited, which happens after the context
// passed to Start is cancelled.
func (g *Group) Wait() {
	g.wg.Wait()
}
