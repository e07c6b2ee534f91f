// Package cmd wires the worker-node commands: the ticker loop, the event
// worker, and Redis debug tooling. Both long-running commands share the
// bootstrap in this file.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/intagaming/tic-tac-toe-worker-node/config"
	"github.com/intagaming/tic-tac-toe-worker-node/game"
	"github.com/intagaming/tic-tac-toe-worker-node/lock"
	"github.com/intagaming/tic-tac-toe-worker-node/logging"
	"github.com/intagaming/tic-tac-toe-worker-node/notify"
	"github.com/intagaming/tic-tac-toe-worker-node/observability"
	"github.com/intagaming/tic-tac-toe-worker-node/queue"
	"github.com/intagaming/tic-tac-toe-worker-node/store"
	"github.com/intagaming/tic-tac-toe-worker-node/ticker"
	redisutil "github.com/intagaming/tic-tac-toe-worker-node/transport/redis"
)

const (
	flagConfig   = "config"
	flagRedisURL = "redis-url"
)

// addCommonFlags registers the flags every command accepts.
func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().String(flagConfig, "", "Path to config file (YAML); defaults apply when omitted")
	cmd.Flags().String(flagRedisURL, "", "Redis connection URL (overrides config)")
}

// loadConfig reads the config file named by --config and applies the
// --redis-url override.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString(flagConfig)
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if redisURL, _ := cmd.Flags().GetString(flagRedisURL); redisURL != "" {
		cfg.Redis.URL = redisURL
	}
	return cfg, nil
}

// connectRedis builds the shared Redis client from config.
func connectRedis(ctx context.Context, cfg *config.Config) (*redisutil.Client, error) {
	client, err := redisutil.NewClient(ctx, redisutil.ClientConfig{
		URL:                    cfg.Redis.URL,
		PoolSize:               cfg.Redis.PoolSize,
		MinIdleConns:           cfg.Redis.MinIdleConns,
		PoolTimeoutSeconds:     cfg.Redis.PoolTimeoutSeconds,
		ConnMaxIdleTimeSeconds: cfg.Redis.ConnMaxIdleTimeSeconds,
		Namespace:              cfg.Redis.Namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// startObservability starts the metrics/pprof server for one role's
// combined gatherer.
func startObservability(ctx context.Context, logger logging.Logger, cfg *config.Config, registry prometheus.Gatherer) (*observability.Server, error) {
	server := observability.NewServer(logger, observability.ServerConfig{
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsAddr:    cfg.Metrics.Addr,
		PprofEnabled:   cfg.Pprof.Enabled,
		PprofAddr:      cfg.Pprof.Addr,
		Registry:       registry,
	})
	if err := server.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start observability server: %w", err)
	}
	return server, nil
}

// tickerOptions maps the config section onto the ticker's options.
func tickerOptions(cfg config.TickerConfig) ticker.Options {
	return ticker.Options{
		TickTime:             time.Duration(cfg.TickTimeMs) * time.Millisecond,
		IdleHalfTicksTrigger: cfg.IdleHalfTicksTrigger,
		IdleInterval:         time.Duration(cfg.IdleIntervalMs) * time.Millisecond,
		PushbackTime:         time.Duration(cfg.PushbackMs) * time.Millisecond,
		LockLease:            time.Duration(cfg.LockLeaseMs) * time.Millisecond,
	}
}

// gameOptions maps the config section onto the engine's options, keeping
// the lock knobs at their defaults.
func gameOptions(cfg config.GameConfig) game.Options {
	opts := game.DefaultOptions()
	opts.RoomTimeout = time.Duration(cfg.RoomTimeoutSeconds) * time.Second
	opts.ReconnectWiggle = time.Duration(cfg.ReconnectWiggleSeconds) * time.Second
	opts.TurnTime = time.Duration(cfg.TurnTimeSeconds) * time.Second
	opts.FinishingCountdown = time.Duration(cfg.FinishingCountdownSeconds) * time.Second
	return opts
}

// buildEngine assembles the game engine and its announcer on top of a
// connected client.
func buildEngine(logger logging.Logger, client *redisutil.Client, cfg *config.Config) (*game.Engine, *notify.RedisAnnouncer) {
	announcer := notify.NewRedisAnnouncer(logger, client, cfg.Worker.AnnounceConcurrency)
	engine := game.NewEngine(
		logger,
		store.New(logger, client),
		queue.New(logger, client),
		lock.New(logger, client),
		announcer,
		gameOptions(cfg.Game),
	)
	return engine, announcer
}

// consumerName returns the configured consumer identity or derives one
// from the hostname so parallel instances never collide in the group.
func consumerName(cfg config.WorkerConfig) string {
	if cfg.ConsumerName != "" {
		return cfg.ConsumerName
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "worker"
	}
	return fmt.Sprintf("%s-%s", hostname, uuid.NewString()[:8])
}
