package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/intagaming/tic-tac-toe-worker-node/lock"
	"github.com/intagaming/tic-tac-toe-worker-node/logging"
	"github.com/intagaming/tic-tac-toe-worker-node/observability"
	"github.com/intagaming/tic-tac-toe-worker-node/queue"
	"github.com/intagaming/tic-tac-toe-worker-node/ticker"
)

const flagInstances = "instances"

// TickerCmd returns the command for starting the adaptive tick scheduler.
func TickerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ticker",
		Short: "Start the adaptive tick scheduler",
		Long: `Start the adaptive tick scheduler.

The ticker watches the shared due-timer queue and applies time-driven
transitions (finishing countdowns, room resets) to rooms whose deadline
has passed. Any number of ticker processes can share one queue; claims
are arbitrated through optimistic score updates and per-room locks.

Example:
  worker-node ticker --config /path/to/config.yaml --instances 2
`,
		RunE: runTicker,
	}

	addCommonFlags(cmd)
	cmd.Flags().Int(flagInstances, 0, "Number of in-process ticker loops (overrides config)")

	return cmd
}

func runTicker(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	startup := observability.NewTimer()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if instances, _ := cmd.Flags().GetInt(flagInstances); instances > 0 {
		cfg.Ticker.Instances = instances
	}

	logger := logging.NewLoggerFromConfig(cfg.Logging)
	logger.Info().Int(logging.FieldCount, cfg.Ticker.Instances).Msg("starting ticker")

	obsServer, err := startObservability(ctx, logger, cfg, observability.GathererFor(observability.TickerRegistry))
	if err != nil {
		return err
	}
	defer func() { _ = obsServer.Stop() }()

	client, err := connectRedis(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	engine, announcer := buildEngine(logger, client, cfg)
	defer func() { _ = announcer.Close() }()

	group := ticker.NewGroup(
		logger,
		queue.New(logger, client),
		lock.New(logger, client),
		engine.Tick,
		tickerOptions(cfg.Ticker),
	)
	if err := group.Start(ctx, cfg.Ticker.Instances); err != nil {
		return fmt.Errorf("failed to start ticker group: %w", err)
	}

	obsServer.SetReadinessCheck(func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	startup.ObserveStartup("ticker")

	<-ctx.Done()
	logger.Info().Msg("shutting down ticker")
	group.Wait()
	return nil
}
