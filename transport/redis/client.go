package redis

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/intagaming/tic-tac-toe-worker-node/config"
)

// Client wraps a Redis client with a KeyBuilder for namespace-aware key
// construction. Every package touching shared state goes through this
// wrapper so key shapes live in exactly one place.
type Client struct {
	redis.UniversalClient
	keyBuilder *KeyBuilder
}

// KB returns the KeyBuilder for constructing Redis keys with configured
// namespaces. Use this instead of hardcoding key patterns.
//
// Example:
//
//	key := client.KB().RoomKey("my-room")
//	// Returns: "room:my-room" (based on config)
func (c *Client) KB() *KeyBuilder {
	return c.keyBuilder
}

// ClientConfig contains configuration for creating a Redis client.
type ClientConfig struct {
	// URL is the Redis connection URL.
	// Supports: redis://, rediss:// (TLS), redis-sentinel://, redis-cluster://
	URL string

	// MaxRetries is the maximum number of retries before giving up.
	// Default: 3
	MaxRetries int

	// PoolSize is the maximum number of socket connections.
	// The worker holds one blocked connection on XREADGROUP and the
	// announcer publishes concurrently, so leave headroom beyond one
	// connection per in-flight operation. Default: 20
	PoolSize int

	// MinIdleConns is the minimum number of idle connections.
	MinIdleConns int

	// PoolTimeoutSeconds is the time to wait for a connection from the pool.
	PoolTimeoutSeconds int

	// ConnMaxIdleTimeSeconds closes connections idle longer than this.
	ConnMaxIdleTimeSeconds int

	// Namespace configures Redis key prefixes. If not provided, defaults
	// matching the original wire layout are used.
	Namespace config.RedisNamespaceConfig
}

// NewClient creates a new Redis client with KeyBuilder from the
// configuration. Supports standalone, sentinel, and cluster modes based on
// the URL scheme.
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("redis URL is required")
	}

	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 20
	}

	var client redis.UniversalClient

	switch u.Scheme {
	case "redis", "rediss":
		opts, parseErr := redis.ParseURL(cfg.URL)
		if parseErr != nil {
			return nil, fmt.Errorf("failed to parse redis URL: %w", parseErr)
		}
		opts.MaxRetries = maxRetries
		opts.PoolSize = poolSize
		opts.MinIdleConns = cfg.MinIdleConns

		if cfg.PoolTimeoutSeconds > 0 {
			opts.PoolTimeout = time.Duration(cfg.PoolTimeoutSeconds) * time.Second
		}
		if cfg.ConnMaxIdleTimeSeconds > 0 {
			opts.ConnMaxIdleTime = time.Duration(cfg.ConnMaxIdleTimeSeconds) * time.Second
		}

		client = redis.NewClient(opts)

	case "redis-sentinel":
		client, err = newSentinelClient(u, maxRetries, poolSize, cfg.MinIdleConns, cfg.PoolTimeoutSeconds, cfg.ConnMaxIdleTimeSeconds)
		if err != nil {
			return nil, err
		}

	case "redis-cluster":
		client, err = newClusterClient(u, maxRetries, poolSize, cfg.MinIdleConns, cfg.PoolTimeoutSeconds, cfg.ConnMaxIdleTimeSeconds)
		if err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unsupported redis URL scheme: %s", u.Scheme)
	}

	if err = client.Ping(ctx).Err(); err != nil {
		if closeErr := client.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	namespace := cfg.Namespace
	if namespace.RoomPrefix == "" {
		namespace = config.DefaultRedisNamespaceConfig()
	}

	return &Client{
		UniversalClient: client,
		keyBuilder:      NewKeyBuilder(namespace),
	}, nil
}

// newSentinelClient creates a Redis Sentinel client.
// URL format: redis-sentinel://[:password@]host1:port1,host2:port2/master_name[?db=N]
func newSentinelClient(u *url.URL, maxRetries, poolSize, minIdleConns, poolTimeoutSeconds, connMaxIdleTimeSeconds int) (redis.UniversalClient, error) {
	masterName := strings.TrimPrefix(u.Path, "/")
	if masterName == "" {
		return nil, fmt.Errorf("sentinel URL must include master name in path")
	}

	addrs := strings.Split(u.Host, ",")
	if len(addrs) == 0 {
		return nil, fmt.Errorf("sentinel URL must include at least one sentinel address")
	}

	password := ""
	if u.User != nil {
		password, _ = u.User.Password()
	}

	db := 0
	if dbStr := u.Query().Get("db"); dbStr != "" {
		var err error
		db, err = strconv.Atoi(dbStr)
		if err != nil {
			return nil, fmt.Errorf("invalid db number: %w", err)
		}
	}

	opts := &redis.FailoverOptions{
		MasterName:    masterName,
		SentinelAddrs: addrs,
		Password:      password,
		DB:            db,
		MaxRetries:    maxRetries,
		PoolSize:      poolSize,
		MinIdleConns:  minIdleConns,
	}

	if poolTimeoutSeconds > 0 {
		opts.PoolTimeout = time.Duration(poolTimeoutSeconds) * time.Second
	}
	if connMaxIdleTimeSeconds > 0 {
		opts.ConnMaxIdleTime = time.Duration(connMaxIdleTimeSeconds) * time.Second
	}

	return redis.NewFailoverClient(opts), nil
}

// newClusterClient creates a Redis Cluster client.
// URL format: redis-cluster://[:password@]host1:port1,host2:port2
func newClusterClient(u *url.URL, maxRetries, poolSize, minIdleConns, poolTimeoutSeconds, connMaxIdleTimeSeconds int) (redis.UniversalClient, error) {
	addrs := strings.Split(u.Host, ",")
	if len(addrs) == 0 {
		return nil, fmt.Errorf("cluster URL must include at least one node address")
	}

	password := ""
	if u.User != nil {
		password, _ = u.User.Password()
	}

	opts := &redis.ClusterOptions{
		Addrs:        addrs,
		Password:     password,
		MaxRetries:   maxRetries,
		PoolSize:     poolSize,
		MinIdleConns: minIdleConns,
	}

	if poolTimeoutSeconds > 0 {
		opts.PoolTimeout = time.Duration(poolTimeoutSeconds) * time.Second
	}
	if connMaxIdleTimeSeconds > 0 {
		opts.ConnMaxIdleTime = time.Duration(connMaxIdleTimeSeconds) * time.Second
	}

	return redis.NewClusterClient(opts), nil
}
