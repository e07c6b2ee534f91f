// Package config defines the YAML configuration shared by the ticker and
// worker commands, plus the Redis namespace every component builds its keys
// from. Durations are plain integers with the unit in the field name; YAML
// has no native duration type.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/intagaming/tic-tac-toe-worker-node/logging"
)

// TickerConfig contains the adaptive scheduling loop's settings.
type TickerConfig struct {
	// Instances is how many scheduling loops this process runs.
	// Default: 1
	Instances int `yaml:"instances,omitempty"`

	// TickTimeMs is the cadence between ticks of one room, in
	// milliseconds. The loop wakes every half tick. Default: 2000
	TickTimeMs int `yaml:"tick_time_ms,omitempty"`

	// IdleHalfTicksTrigger is how many consecutive workless wakes flip a
	// loop into idle mode. Default: 10
	IdleHalfTicksTrigger int `yaml:"idle_half_ticks_trigger,omitempty"`

	// IdleIntervalMs is the wake cadence while idle, in milliseconds.
	// Default: 5000
	IdleIntervalMs int `yaml:"idle_interval_ms,omitempty"`

	// PushbackMs is how far a claimed queue entry is pushed into the
	// future before tick work starts, in milliseconds. Default: 6000
	PushbackMs int `yaml:"pushback_ms,omitempty"`

	// LockLeaseMs is the per-room tick lock lease, in milliseconds.
	// Default: 5000
	LockLeaseMs int `yaml:"lock_lease_ms,omitempty"`
}

// GameConfig contains the session state machine's timing settings.
type GameConfig struct {
	// RoomTimeoutSeconds is how long an abandoned room lingers before
	// expiring. Default: 60
	RoomTimeoutSeconds int `yaml:"room_timeout_seconds,omitempty"`

	// ReconnectWiggleSeconds is subtracted from the room timeout for the
	// client reconnect grace period. Default: 10
	ReconnectWiggleSeconds int `yaml:"reconnect_wiggle_seconds,omitempty"`

	// TurnTimeSeconds is the per-turn deadline. Default: 30
	TurnTimeSeconds int `yaml:"turn_time_seconds,omitempty"`

	// FinishingCountdownSeconds is how long a decided game lingers before
	// the room resets. Default: 5
	FinishingCountdownSeconds int `yaml:"finishing_countdown_seconds,omitempty"`
}

// WorkerConfig contains the event consumer's settings.
type WorkerConfig struct {
	// ConsumerName identifies this instance inside the consumer group.
	// Empty means a name is generated at startup from the hostname.
	ConsumerName string `yaml:"consumer_name,omitempty"`

	// BatchSize is the maximum number of events fetched per stream read.
	// Default: 10
	BatchSize int64 `yaml:"batch_size,omitempty"`

	// ClaimIdleTimeoutMs is how long an event may sit unacknowledged with
	// a dead consumer before another instance claims it, in milliseconds.
	// Default: 30000
	ClaimIdleTimeoutMs int64 `yaml:"claim_idle_timeout_ms,omitempty"`

	// AnnounceConcurrency bounds the announcer's publish pool.
	// Default: 8
	AnnounceConcurrency int `yaml:"announce_concurrency,omitempty"`
}

// Config is the full configuration for a worker-node process. One file
// serves both commands; the ticker ignores the worker section and vice
// versa.
type Config struct {
	Logging logging.Config `yaml:"logging"`
	Redis   RedisConfig    `yaml:"redis"`
	Metrics MetricsConfig  `yaml:"metrics"`
	Pprof   PprofConfig    `yaml:"pprof"`
	Ticker  TickerConfig   `yaml:"ticker"`
	Game    GameConfig     `yaml:"game"`
	Worker  WorkerConfig   `yaml:"worker"`
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	return Config{
		Logging: logging.DefaultConfig(),
		Redis: RedisConfig{
			URL:       "redis://localhost:6379",
			Namespace: DefaultRedisNamespaceConfig(),
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9090",
		},
		Pprof: PprofConfig{
			Enabled: false,
			Addr:    "localhost:6060",
		},
		Ticker: TickerConfig{
			Instances:            1,
			TickTimeMs:           2000,
			IdleHalfTicksTrigger: 10,
			IdleIntervalMs:       5000,
			PushbackMs:           6000,
			LockLeaseMs:          5000,
		},
		Game: GameConfig{
			RoomTimeoutSeconds:        60,
			ReconnectWiggleSeconds:    10,
			TurnTimeSeconds:           30,
			FinishingCountdownSeconds: 5,
		},
		Worker: WorkerConfig{
			BatchSize:           10,
			ClaimIdleTimeoutMs:  30000,
			AnnounceConcurrency: 8,
		},
	}
}

// Validate checks the configuration for values that would misbehave at
// runtime rather than fail loudly.
func (c *Config) Validate() error {
	if c.Redis.URL == "" {
		return fmt.Errorf("redis.url is required")
	}
	if c.Ticker.Instances < 1 {
		return fmt.Errorf("ticker.instances must be at least 1, got %d", c.Ticker.Instances)
	}
	if c.Ticker.TickTimeMs < 2 {
		return fmt.Errorf("ticker.tick_time_ms must be at least 2, got %d", c.Ticker.TickTimeMs)
	}
	if c.Ticker.PushbackMs <= c.Ticker.TickTimeMs {
		return fmt.Errorf("ticker.pushback_ms (%d) must exceed ticker.tick_time_ms (%d)",
			c.Ticker.PushbackMs, c.Ticker.TickTimeMs)
	}
	if c.Game.ReconnectWiggleSeconds >= c.Game.RoomTimeoutSeconds {
		return fmt.Errorf("game.reconnect_wiggle_seconds (%d) must be less than game.room_timeout_seconds (%d)",
			c.Game.ReconnectWiggleSeconds, c.Game.RoomTimeoutSeconds)
	}
	if c.Worker.BatchSize < 1 {
		return fmt.Errorf("worker.batch_size must be at least 1, got %d", c.Worker.BatchSize)
	}
	return nil
}

// LoadConfig loads a configuration from a YAML file, applying defaults for
// anything the file leaves out. An empty path returns the defaults.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}
