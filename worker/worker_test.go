//go:build test

package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/intagaming/tic-tac-toe-worker-node/game"
	"github.com/intagaming/tic-tac-toe-worker-node/lock"
	"github.com/intagaming/tic-tac-toe-worker-node/logging"
	"github.com/intagaming/tic-tac-toe-worker-node/notify"
	"github.com/intagaming/tic-tac-toe-worker-node/queue"
	"github.com/intagaming/tic-tac-toe-worker-node/room"
	"github.com/intagaming/tic-tac-toe-worker-node/store"
	"github.com/intagaming/tic-tac-toe-worker-node/testutil"
	"github.com/intagaming/tic-tac-toe-worker-node/transport"
)

// channelConsumer feeds tests' messages through the EventConsumer
// interface and records acknowledgements.
type channelConsumer struct {
	messages chan transport.StreamMessage
	acked    chan string
}

func newChannelConsumer() *channelConsumer {
	return &channelConsumer{
		messages: make(chan transport.StreamMessage, 16),
		acked:    make(chan string, 16),
	}
}

func (c *channelConsumer) Consume(_ context.Context) <-chan transport.StreamMessage {
	return c.messages
}

func (c *channelConsumer) Ack(_ context.Context, messageID string) error {
	c.acked <- messageID
	return nil
}

func (c *channelConsumer) Pending(_ context.Context) (int64, error) { return 0, nil }

func (c *channelConsumer) Close() error { return nil }

type WorkerTestSuite struct {
	testutil.RedisTestSuite

	store    *store.Store
	consumer *channelConsumer
	worker   *Worker
}

func TestWorkerTestSuite(t *testing.T) {
	suite.Run(t, new(WorkerTestSuite))
}

func (s *WorkerTestSuite) SetupTest() {
	s.RedisTestSuite.SetupTest()

	logger := logging.NewLoggerFromConfig(logging.DefaultConfig())
	s.store = store.New(logger, s.RedisClient)
	announcer := notify.NewRedisAnnouncer(logger, s.RedisClient, 2)
	engine := game.NewEngine(
		logger,
		s.store,
		queue.New(logger, s.RedisClient),
		lock.New(logger, s.RedisClient),
		announcer,
		game.DefaultOptions(),
	)
	s.consumer = newChannelConsumer()
	s.worker = New(logger, s.consumer, s.RedisClient.KB(), engine)
}

func (s *WorkerTestSuite) controlChannel(roomID string) string {
	return s.RedisClient.KB().ControlChannel(roomID)
}

func (s *WorkerTestSuite) TestHandleMalformedPayloadAcked() {
	ack := s.worker.handle(s.Ctx, transport.StreamMessage{ID: "1-0", Payload: []byte("not json")})
	s.Require().True(ack, "malformed events must be acked, not retried")
}

func (s *WorkerTestSuite) TestHandleForeignChannelAcked() {
	payload := testutil.PresenceEnvelope("lobby:general", "alice", transport.PresenceEnter)
	ack := s.worker.handle(s.Ctx, transport.StreamMessage{ID: "1-0", Payload: payload})
	s.Require().True(ack)
}

func (s *WorkerTestSuite) TestHandlePresenceEnterSeatsClient() {
	s.Require().NoError(s.store.PutRoom(s.Ctx, testutil.NewRoom("r1").Build(), store.ClearTTL()))

	payload := testutil.PresenceEnvelope(s.controlChannel("r1"), "alice", transport.PresenceEnter)
	ack := s.worker.handle(s.Ctx, transport.StreamMessage{ID: "1-0", Payload: payload})
	s.Require().True(ack)

	r, err := s.store.GetRoom(s.Ctx, "r1")
	s.Require().NoError(err)
	s.Require().Equal("alice", *r.Host)
}

func (s *WorkerTestSuite) TestHandlePresenceLeaveStartsGrace() {
	s.Require().NoError(s.store.PutRoom(s.Ctx, testutil.NewRoom("r1").WithHost("alice").Build(), store.ClearTTL()))
	s.Require().NoError(s.store.BindClient(s.Ctx, "alice", "r1"))

	payload := testutil.PresenceEnvelope(s.controlChannel("r1"), "alice", transport.PresenceLeave)
	ack := s.worker.handle(s.Ctx, transport.StreamMessage{ID: "1-0", Payload: payload})
	s.Require().True(ack)

	s.Require().Equal(50*time.Second, s.MiniRedis.TTL(s.RedisClient.KB().ClientKey("alice")))
}

func (s *WorkerTestSuite) TestHandleMessageDispatchesAction() {
	s.Require().NoError(s.store.PutRoom(s.Ctx, testutil.NewRoom("r1").WithHost("alice").WithGuest("bob").Build(), store.ClearTTL()))

	payload := testutil.MessageEnvelope(s.controlChannel("r1"), "alice", string(room.ActionStartGame), "")
	ack := s.worker.handle(s.Ctx, transport.StreamMessage{ID: "1-0", Payload: payload})
	s.Require().True(ack)

	r, err := s.store.GetRoom(s.Ctx, "r1")
	s.Require().NoError(err)
	s.Require().Equal(room.StatePlaying, r.State)
}

func (s *WorkerTestSuite) TestHandleUnknownActionAcked() {
	s.Require().NoError(s.store.PutRoom(s.Ctx, testutil.NewRoom("r1").WithHost("alice").Build(), store.ClearTTL()))

	payload := testutil.MessageEnvelope(s.controlChannel("r1"), "alice", "DANCE", "")
	ack := s.worker.handle(s.Ctx, transport.StreamMessage{ID: "1-0", Payload: payload})
	s.Require().True(ack)
}

func (s *WorkerTestSuite) TestRunAcksHandledEvents() {
	s.Require().NoError(s.store.PutRoom(s.Ctx, testutil.NewRoom("r1").Build(), store.ClearTTL()))

	ctx, cancel := context.WithCancel(s.Ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.worker.Run(ctx) }()

	payload := testutil.PresenceEnvelope(s.controlChannel("r1"), "alice", transport.PresenceEnter)
	s.consumer.messages <- transport.StreamMessage{ID: "7-0", Payload: payload}

	select {
	case id := <-s.consumer.acked:
		s.Require().Equal("7-0", id)
	case <-time.After(2 * time.Second):
		s.Fail("event was not acknowledged")
	}

	close(s.consumer.messages)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		s.Fail("worker did not stop when the consumer closed")
	}
}
