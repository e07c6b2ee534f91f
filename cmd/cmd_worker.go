package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/intagaming/tic-tac-toe-worker-node/logging"
	"github.com/intagaming/tic-tac-toe-worker-node/observability"
	"github.com/intagaming/tic-tac-toe-worker-node/transport"
	redisutil "github.com/intagaming/tic-tac-toe-worker-node/transport/redis"
	"github.com/intagaming/tic-tac-toe-worker-node/worker"
)

// WorkerCmd returns the command for starting the event worker.
func WorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Start the event worker",
		Long: `Start the event worker.

The worker consumes realtime queue events (presence changes and client
messages on room control channels) from the shared Redis Stream and
applies the corresponding game transitions. Worker instances share a
consumer group, so events are load-balanced and a dead instance's
pending events are claimed by the survivors.

Example:
  worker-node worker --config /path/to/config.yaml
`,
		RunE: runWorker,
	}

	addCommonFlags(cmd)

	return cmd
}

func runWorker(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	startup := observability.NewTimer()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := logging.NewLoggerFromConfig(cfg.Logging)

	obsServer, err := startObservability(ctx, logger, cfg, observability.GathererFor(observability.WorkerRegistry))
	if err != nil {
		return err
	}
	defer func() { _ = obsServer.Stop() }()

	client, err := connectRedis(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	consumer, err := redisutil.NewStreamsConsumer(logger, client, transport.ConsumerConfig{
		Stream:           client.KB().EventsStreamKey(),
		ConsumerGroup:    client.KB().ConsumerGroup(),
		ConsumerName:     consumerName(cfg.Worker),
		BatchSize:        cfg.Worker.BatchSize,
		ClaimIdleTimeout: cfg.Worker.ClaimIdleTimeoutMs,
	})
	if err != nil {
		return fmt.Errorf("failed to create event consumer: %w", err)
	}
	defer func() { _ = consumer.Close() }()

	engine, announcer := buildEngine(logger, client, cfg)
	defer func() { _ = announcer.Close() }()

	obsServer.SetReadinessCheck(func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	startup.ObserveStartup("worker")

	w := worker.New(logger, consumer, client.KB(), engine)
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("worker stopped: %w", err)
	}
	logger.Info().Msg("shutting down worker")
	return nil
}
