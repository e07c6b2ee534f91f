// Package store provides read/write access to room records and client
// session bindings in Redis. Durability between operations lives here; no
// component holds a room in memory beyond one read-modify-write cycle.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/intagaming/tic-tac-toe-worker-node/logging"
	"github.com/intagaming/tic-tac-toe-worker-node/room"
	redisutil "github.com/intagaming/tic-tac-toe-worker-node/transport/redis"
)

// ErrRoomNotFound is returned when the requested room record does not exist
// (never created, or already expired).
var ErrRoomNotFound = errors.New("room not found")

// Duration values reported by BindingTTL for keys without a real TTL.
// go-redis passes the TTL command's negative replies through unscaled, so
// these are the raw -1 and -2, not seconds.
const (
	// NoExpiry means the key exists and has no expiration.
	NoExpiry = time.Duration(-1)

	// Missing means the key does not exist.
	Missing = time.Duration(-2)
)

// expirationMode selects what happens to a room key's TTL on write.
type expirationMode int

const (
	modeKeepTTL expirationMode = iota
	modeClearTTL
	modeWithTTL
)

// Expiration selects the TTL behavior of a room write.
type Expiration struct {
	mode expirationMode
	ttl  time.Duration
}

// KeepTTL writes the room without touching any existing expiration.
// This is the common case: a transition updates the record while a pending
// room expiry, if any, stays armed.
func KeepTTL() Expiration {
	return Expiration{mode: modeKeepTTL}
}

// ClearTTL writes the room and removes any pending expiration. Used when a
// client joins or reconnects, cancelling a scheduled room expiry.
func ClearTTL() Expiration {
	return Expiration{mode: modeClearTTL}
}

// WithTTL writes the room and sets an expiration.
func WithTTL(ttl time.Duration) Expiration {
	return Expiration{mode: modeWithTTL, ttl: ttl}
}

// Store is the room store adapter. Safe for concurrent use.
type Store struct {
	logger logging.Logger
	client *redisutil.Client
}

// New creates a room store backed by the given Redis client.
func New(logger logging.Logger, client *redisutil.Client) *Store {
	return &Store{
		logger: logging.ForComponent(logger, logging.ComponentRoomStore),
		client: client,
	}
}

// GetRoom loads a room record. Returns ErrRoomNotFound if the record does
// not exist.
func (s *Store) GetRoom(ctx context.Context, roomID string) (*room.Room, error) {
	data, err := s.client.Get(ctx, s.client.KB().RoomKey(roomID)).Result()
	if err != nil {
		if redisutil.IsNotFound(err) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to get room %s: %w", roomID, err)
	}

	var r room.Room
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, fmt.Errorf("failed to decode room %s: %w", roomID, err)
	}
	return &r, nil
}

// PutRoom persists a room record with the given expiration behavior.
func (s *Store) PutRoom(ctx context.Context, r *room.Room, exp Expiration) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode room %s: %w", r.ID, err)
	}

	key := s.client.KB().RoomKey(r.ID)
	switch exp.mode {
	case modeKeepTTL:
		err = s.client.Set(ctx, key, data, redis.KeepTTL).Err()
	case modeClearTTL:
		err = s.client.Set(ctx, key, data, 0).Err()
	case modeWithTTL:
		err = s.client.Set(ctx, key, data, exp.ttl).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to put room %s: %w", r.ID, err)
	}
	return nil
}

// ExpireRoom schedules the room record to expire after ttl.
func (s *Store) ExpireRoom(ctx context.Context, roomID string, ttl time.Duration) error {
	if err := s.client.Expire(ctx, s.client.KB().RoomKey(roomID), ttl).Err(); err != nil {
		return fmt.Errorf("failed to expire room %s: %w", roomID, err)
	}
	return nil
}

// PersistRoom clears any pending expiration on the room record.
func (s *Store) PersistRoom(ctx context.Context, roomID string) error {
	if err := s.client.Persist(ctx, s.client.KB().RoomKey(roomID)).Err(); err != nil {
		return fmt.Errorf("failed to persist room %s: %w", roomID, err)
	}
	return nil
}

// BindClient records which room a client is in, with no expiration. Called
// on join and reconnect.
func (s *Store) BindClient(ctx context.Context, clientID, roomID string) error {
	if err := s.client.Set(ctx, s.client.KB().ClientKey(clientID), roomID, 0).Err(); err != nil {
		return fmt.Errorf("failed to bind client %s: %w", clientID, err)
	}
	return nil
}

// ExpireBinding gives a client's session binding a TTL. Called on
// presence-leave to start the reconnect grace period.
func (s *Store) ExpireBinding(ctx context.Context, clientID string, ttl time.Duration) error {
	if err := s.client.Expire(ctx, s.client.KB().ClientKey(clientID), ttl).Err(); err != nil {
		return fmt.Errorf("failed to expire binding for client %s: %w", clientID, err)
	}
	return nil
}

// UnbindClient deletes a client's session binding. Called when a client
// leaves a room on purpose, so there is no reconnect grace period.
func (s *Store) UnbindClient(ctx context.Context, clientID string) error {
	if err := s.client.Del(ctx, s.client.KB().ClientKey(clientID)).Err(); err != nil {
		return fmt.Errorf("failed to unbind client %s: %w", clientID, err)
	}
	return nil
}

// Binding returns the room a client's session binding points at. Returns
// ("", nil) when the binding does not exist.
func (s *Store) Binding(ctx context.Context, clientID string) (string, error) {
	roomID, err := s.client.Get(ctx, s.client.KB().ClientKey(clientID)).Result()
	if err != nil {
		if redisutil.IsNotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get binding for client %s: %w", clientID, err)
	}
	return roomID, nil
}

// BindingTTL returns the remaining TTL on a client's session binding.
// Returns NoExpiry for a binding without expiration and Missing for an
// absent binding, following the Redis TTL convention.
func (s *Store) BindingTTL(ctx context.Context, clientID string) (time.Duration, error) {
	ttl, err := s.client.TTL(ctx, s.client.KB().ClientKey(clientID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get binding TTL for client %s: %w", clientID, err)
	}
	return ttl, nil
}
