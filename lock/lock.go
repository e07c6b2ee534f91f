// Package lock implements the per-room lease lock both drivers acquire
// before a read-modify-write cycle. Acquisition is a single SET NX with a
// bounded lease; release is a Lua compare-and-delete so an expired lease can
// never delete a peer's lock. The lease is the sole timeout mechanism: a
// crashed holder starves a room for at most one lease duration.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/intagaming/tic-tac-toe-worker-node/logging"
	redisutil "github.com/intagaming/tic-tac-toe-worker-node/transport/redis"
)

// ErrNotAcquired means another holder currently owns the lock. Expected
// contention, never escalated.
var ErrNotAcquired = errors.New("lock not acquired")

// releaseScript deletes the lock only if the caller still owns it.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
    redis.call("DEL", KEYS[1])
    return 1
else
    return 0
end
`

// Locker acquires per-room lease locks. Safe for concurrent use.
type Locker struct {
	logger  logging.Logger
	client  *redisutil.Client
	release *redis.Script
}

// New creates a Locker backed by the given Redis client.
func New(logger logging.Logger, client *redisutil.Client) *Locker {
	return &Locker{
		logger:  logging.ForComponent(logger, logging.ComponentRoomLock),
		client:  client,
		release: redis.NewScript(releaseScript),
	}
}

// AcquireRoom attempts to take the lease lock for a room. It either
// succeeds immediately or fails fast with ErrNotAcquired; there is no
// blocking retry within one attempt.
func (l *Locker) AcquireRoom(ctx context.Context, roomID string, lease time.Duration) (*Lease, error) {
	key := l.client.KB().TickLockKey(roomID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, lease).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrNotAcquired
	}

	return &Lease{locker: l, key: key, token: token}, nil
}

// AcquireRoomWithRetry attempts acquisition up to attempts times, waiting
// retryDelay between tries. The event worker uses this so an action landing
// while a tick holds the room waits briefly instead of dropping.
func (l *Locker) AcquireRoomWithRetry(ctx context.Context, roomID string, lease time.Duration, attempts int, retryDelay time.Duration) (*Lease, error) {
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}
		}

		le, err := l.AcquireRoom(ctx, roomID, lease)
		if err == nil {
			return le, nil
		}
		if !errors.Is(err, ErrNotAcquired) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// Lease is a held lock. Release it on every exit path of the critical
// section.
type Lease struct {
	locker *Locker
	key    string
	token  string
}

// Release frees the lock if still owned. Releasing an already-expired lease
// is a no-op, not an error: the lease protected its holder for as long as
// it could.
func (le *Lease) Release(ctx context.Context) error {
	result, err := le.locker.release.Run(ctx, le.locker.client, []string{le.key}, le.token).Int()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", le.key, err)
	}
	if result == 0 {
		le.locker.logger.Warn().
			Str(logging.FieldLockKey, le.key).
			Msg("lease expired before release, a peer may have processed concurrently")
	}
	return nil
}
