package config

// RedisConfig contains Redis connection configuration shared between the
// ticker and the worker.
type RedisConfig struct {
	// URL is the Redis connection URL.
	// Supports: redis://, rediss://, redis-sentinel://, redis-cluster://
	URL string `yaml:"url"`

	// PoolSize is the maximum number of socket connections.
	// Set to 0 for the go-redis default (10 × GOMAXPROCS).
	PoolSize int `yaml:"pool_size,omitempty"`

	// MinIdleConns is the minimum number of idle connections to maintain.
	// Keeping idle connections warm eliminates connection dial latency.
	// Set to 0 to disable (connections created on demand).
	MinIdleConns int `yaml:"min_idle_conns,omitempty"`

	// PoolTimeout is the amount of time to wait for a connection from the
	// pool, in seconds. Default: 4 seconds.
	PoolTimeoutSeconds int `yaml:"pool_timeout_seconds,omitempty"`

	// ConnMaxIdleTime is the maximum amount of time a connection can be
	// idle, in seconds. Idle connections older than this are closed.
	ConnMaxIdleTimeSeconds int `yaml:"conn_max_idle_time_seconds,omitempty"`

	// Namespace configures Redis key prefixes for all data types.
	// The ticker, worker and debug commands all read from this config to
	// build keys. If not specified, defaults match the original wire layout
	// (room:, client:, tickingRooms, tick:, server:).
	Namespace RedisNamespaceConfig `yaml:"namespace,omitempty"`
}

// RedisNamespaceConfig contains Redis key namespace/prefix configuration.
// This centralizes every key shape used across the system. Components use
// transport/redis.KeyBuilder to construct keys from this config.
type RedisNamespaceConfig struct {
	// RoomPrefix is the prefix for room records (default: "room")
	// Full key: {RoomPrefix}:{roomID}
	RoomPrefix string `yaml:"room_prefix,omitempty"`

	// ClientPrefix is the prefix for client session bindings (default: "client")
	// Full key: {ClientPrefix}:{clientID}
	ClientPrefix string `yaml:"client_prefix,omitempty"`

	// TickingQueueKey is the sorted set holding due-timer entries
	// (default: "tickingRooms")
	TickingQueueKey string `yaml:"ticking_queue_key,omitempty"`

	// LockPrefix is the prefix for per-room lease locks (default: "tick")
	// Full key: {LockPrefix}:{roomID}
	LockPrefix string `yaml:"lock_prefix,omitempty"`

	// ServerChannelPrefix is the prefix for per-room announcer pub/sub
	// channels (default: "server")
	// Full channel: {ServerChannelPrefix}:{roomID}
	ServerChannelPrefix string `yaml:"server_channel_prefix,omitempty"`

	// ControlChannelPrefix is the prefix for the client-facing control
	// channels events are received on (default: "control")
	ControlChannelPrefix string `yaml:"control_channel_prefix,omitempty"`

	// EventsStreamKey is the Redis Stream inbound realtime events are
	// consumed from (default: "events")
	EventsStreamKey string `yaml:"events_stream_key,omitempty"`

	// ConsumerGroup is the consumer group name for the events stream
	// (default: "worker-nodes")
	ConsumerGroup string `yaml:"consumer_group,omitempty"`
}

// DefaultRedisNamespaceConfig returns the default namespace configuration.
// The room, client, queue, lock and channel shapes match the layout clients
// already depend on.
func DefaultRedisNamespaceConfig() RedisNamespaceConfig {
	return RedisNamespaceConfig{
		RoomPrefix:           "room",
		ClientPrefix:         "client",
		TickingQueueKey:      "tickingRooms",
		LockPrefix:           "tick",
		ServerChannelPrefix:  "server",
		ControlChannelPrefix: "control",
		EventsStreamKey:      "events",
		ConsumerGroup:        "worker-nodes",
	}
}
