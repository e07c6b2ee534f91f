// Package queue implements the shared due-timer queue: a Redis sorted set
// mapping room identifier to due timestamp. The existence of an entry means
// "this room needs a time-driven check at or after its score". Entries are
// keyed by room identifier, so logical updates overwrite rather than
// duplicate.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/intagaming/tic-tac-toe-worker-node/logging"
	redisutil "github.com/intagaming/tic-tac-toe-worker-node/transport/redis"
)

// conditionalRescheduleScript atomically compares an entry's current score
// against the expected value and, only on a match, rewrites it. This is the
// optimistic-concurrency primitive the ticker uses to detect that a peer
// already claimed the same entry: ZSCORE has no native compare-and-set, so
// the check and the write must travel together.
//
// Returns 1 on success, 0 on score mismatch, -1 when the entry is absent.
const conditionalRescheduleScript = `
local score = redis.call("ZSCORE", KEYS[1], ARGV[1])
if not score then
    return -1
end
if tonumber(score) ~= tonumber(ARGV[2]) then
    return 0
end
redis.call("ZADD", KEYS[1], ARGV[3], ARGV[1])
return 1
`

// RescheduleResult is the outcome of a conditional reschedule.
type RescheduleResult int

const (
	// RescheduleOK means the entry matched and was rewritten; the caller
	// owns this tick.
	RescheduleOK RescheduleResult = iota

	// RescheduleStale means another instance already advanced the entry.
	RescheduleStale

	// RescheduleAbsent means the entry was removed concurrently. Treated as
	// "already handled elsewhere", not an error.
	RescheduleAbsent
)

// DueQueue is the shared ordered due-timer structure. Safe for concurrent
// use from any number of processes; all coordination happens in Redis.
type DueQueue struct {
	logger logging.Logger
	client *redisutil.Client
	key    string

	rescheduleScript *redis.Script
}

// New creates a DueQueue over the configured sorted set.
func New(logger logging.Logger, client *redisutil.Client) *DueQueue {
	return &DueQueue{
		logger:           logging.ForComponent(logger, logging.ComponentDueQueue),
		client:           client,
		key:              client.KB().TickingQueueKey(),
		rescheduleScript: redis.NewScript(conditionalRescheduleScript),
	}
}

// PeekMin returns the entry with the lowest score, without removing it.
// ok is false when the queue is empty. Scores are Unix milliseconds.
func (q *DueQueue) PeekMin(ctx context.Context) (roomID string, score int64, ok bool, err error) {
	entries, err := q.client.ZRangeWithScores(ctx, q.key, 0, 0).Result()
	if err != nil {
		return "", 0, false, fmt.Errorf("failed to peek due queue: %w", err)
	}
	if len(entries) == 0 {
		return "", 0, false, nil
	}

	roomID, _ = entries[0].Member.(string)
	return roomID, int64(entries[0].Score), true, nil
}

// Score returns the current score of a room's entry. ok is false when the
// entry is absent.
func (q *DueQueue) Score(ctx context.Context, roomID string) (int64, bool, error) {
	score, err := q.client.ZScore(ctx, q.key, roomID).Result()
	if err != nil {
		if redisutil.IsNotFound(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to read score for room %s: %w", roomID, err)
	}
	return int64(score), true, nil
}

// Schedule inserts or overwrites a room's entry with the given due time.
func (q *DueQueue) Schedule(ctx context.Context, roomID string, dueAt time.Time) error {
	err := q.client.ZAdd(ctx, q.key, redis.Z{
		Score:  float64(dueAt.UnixMilli()),
		Member: roomID,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to schedule room %s: %w", roomID, err)
	}
	return nil
}

// ConditionalReschedule rewrites a room's entry to newDueAt only if its
// current score still equals expectedScore.
func (q *DueQueue) ConditionalReschedule(ctx context.Context, roomID string, expectedScore int64, newDueAt time.Time) (RescheduleResult, error) {
	result, err := q.rescheduleScript.Run(ctx, q.client, []string{q.key},
		roomID,
		expectedScore,
		newDueAt.UnixMilli(),
	).Int()
	if err != nil {
		return RescheduleStale, fmt.Errorf("failed conditional reschedule for room %s: %w", roomID, err)
	}

	switch result {
	case 1:
		return RescheduleOK, nil
	case -1:
		return RescheduleAbsent, nil
	default:
		return RescheduleStale, nil
	}
}

// Remove deletes a room's entry. Removing an absent entry is a no-op.
func (q *DueQueue) Remove(ctx context.Context, roomID string) error {
	if err := q.client.ZRem(ctx, q.key, roomID).Err(); err != nil {
		return fmt.Errorf("failed to remove room %s from due queue: %w", roomID, err)
	}
	return nil
}

// Len returns the number of entries. Used by metrics and debug tooling.
func (q *DueQueue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.ZCard(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read due queue length: %w", err)
	}
	return n, nil
}

// Entries returns all entries in score order. Used by debug tooling only;
// the ticker itself never scans past the minimum.
func (q *DueQueue) Entries(ctx context.Context) ([]Entry, error) {
	zs, err := q.client.ZRangeWithScores(ctx, q.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list due queue entries: %w", err)
	}

	entries := make([]Entry, 0, len(zs))
	for _, z := range zs {
		member, _ := z.Member.(string)
		entries = append(entries, Entry{RoomID: member, DueAt: time.UnixMilli(int64(z.Score))})
	}
	return entries, nil
}

// Entry is one due-timer entry.
type Entry struct {
	RoomID string
	DueAt  time.Time
}
