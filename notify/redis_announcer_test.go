//go:build test

package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/intagaming/tic-tac-toe-worker-node/logging"
	"github.com/intagaming/tic-tac-toe-worker-node/room"
	"github.com/intagaming/tic-tac-toe-worker-node/testutil"
)

type AnnouncerTestSuite struct {
	testutil.RedisTestSuite
	announcer *RedisAnnouncer
}

func TestAnnouncerTestSuite(t *testing.T) {
	suite.Run(t, new(AnnouncerTestSuite))
}

func (s *AnnouncerTestSuite) SetupTest() {
	s.RedisTestSuite.SetupTest()
	logger := logging.NewLoggerFromConfig(logging.DefaultConfig())
	s.announcer = NewRedisAnnouncer(logger, s.RedisClient, 2)
}

func (s *AnnouncerTestSuite) TearDownTest() {
	s.Require().NoError(s.announcer.Close())
}

func (s *AnnouncerTestSuite) TestAnnouncePublishesWireEvent() {
	sub := s.RedisClient.Subscribe(s.Ctx, s.RedisClient.KB().ServerChannel("r1"))
	defer func() { _ = sub.Close() }()

	// Wait for the subscription before publishing.
	_, err := sub.Receive(s.Ctx)
	s.Require().NoError(err)

	s.announcer.Announce(s.Ctx, "r1", room.AnnouncerRoomState, `{"id":"r1"}`)

	select {
	case msg := <-sub.Channel():
		s.Require().JSONEq(`{"name":"ROOM_STATE","data":"{\"id\":\"r1\"}"}`, msg.Payload)
	case <-time.After(2 * time.Second):
		s.Fail("announcement was not published")
	}
}

func (s *AnnouncerTestSuite) TestAnnouncementsStayOnTheirRoomChannel() {
	sub := s.RedisClient.Subscribe(s.Ctx, s.RedisClient.KB().ServerChannel("other"))
	defer func() { _ = sub.Close() }()
	_, err := sub.Receive(s.Ctx)
	s.Require().NoError(err)

	s.announcer.Announce(s.Ctx, "r1", room.AnnouncerGameFinished, "{}")

	select {
	case msg := <-sub.Channel():
		s.Failf("unexpected cross-channel delivery", "payload: %s", msg.Payload)
	case <-time.After(100 * time.Millisecond):
	}
}
