package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/alitto/pond/v2"

	"github.com/intagaming/tic-tac-toe-worker-node/logging"
	"github.com/intagaming/tic-tac-toe-worker-node/room"
	redisutil "github.com/intagaming/tic-tac-toe-worker-node/transport/redis"
)

var _ Announcer = (*RedisAnnouncer)(nil)

// publishTimeout bounds one publish round trip so a slow Redis cannot pile
// up announcer goroutines behind it.
const publishTimeout = 5 * time.Second

// wireEvent is the message published on a room's server channel. The
// realtime bridge fans it out to subscribed clients under the event name.
type wireEvent struct {
	Name string `json:"name"`
	Data string `json:"data"`
}

// RedisAnnouncer publishes announcer events to per-room pub/sub channels.
// Publishes run on a bounded pool so the caller's transition never blocks
// on the transport.
type RedisAnnouncer struct {
	logger logging.Logger
	client *redisutil.Client
	pool   pond.Pool
}

// NewRedisAnnouncer creates an announcer publishing through the given Redis
// client. concurrency bounds the number of in-flight publishes.
func NewRedisAnnouncer(logger logging.Logger, client *redisutil.Client, concurrency int) *RedisAnnouncer {
	if concurrency <= 0 {
		concurrency = 8
	}

	return &RedisAnnouncer{
		logger: logging.ForComponent(logger, logging.ComponentAnnouncer),
		client: client,
		pool:   pond.NewPool(concurrency),
	}
}

// Announce publishes one event for the room. The submit is synchronous; the
// Redis round trip is not.
func (a *RedisAnnouncer) Announce(ctx context.Context, roomID string, event room.Announcer, payload string) {
	channel := a.client.KB().ServerChannel(roomID)

	msg, err := json.Marshal(wireEvent{Name: string(event), Data: payload})
	if err != nil {
		// Only possible with invalid UTF-8 in the payload; drop and count.
		publishFailuresTotal.WithLabelValues(string(event)).Inc()
		a.logger.Error().
			Err(err).
			Str(logging.FieldRoom, roomID).
			Str(logging.FieldEvent, string(event)).
			Msg("failed to encode announcement")
		return
	}

	a.pool.Submit(func() {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()

		if err := a.client.Publish(pubCtx, channel, msg).Err(); err != nil {
			publishFailuresTotal.WithLabelValues(string(event)).Inc()
			a.logger.Warn().
				Err(err).
				Str(logging.FieldRoom, roomID).
				Str(logging.FieldEvent, string(event)).
				Msg("failed to publish announcement")
			return
		}
		publishedTotal.WithLabelValues(string(event)).Inc()
	})
}

// Close waits for in-flight publishes to finish.
func (a *RedisAnnouncer) Close() error {
	a.pool.StopAndWait()
	return nil
}
