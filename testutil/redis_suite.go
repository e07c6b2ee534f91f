//go:build test

// Package testutil provides the shared miniredis suite and fixture
// builders used by package tests across the repo.
package testutil

import (
	"context"
	"fmt"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	redisutil "github.com/intagaming/tic-tac-toe-worker-node/transport/redis"
)

// RedisTestSuite provides a shared miniredis instance for tests.
// Embed this in your test suite to get automatic Redis setup/teardown.
//
// One miniredis serves the whole suite; FlushAll between tests keeps them
// isolated without paying a server start per test.
//
// Usage:
//
//	type MyTestSuite struct {
//	    testutil.RedisTestSuite
//	}
//
//	func (s *MyTestSuite) TestSomething() {
//	    err := s.RedisClient.Set(s.Ctx, "key", "value", 0).Err()
//	    s.Require().NoError(err)
//	}
//
//	func TestMyTestSuite(t *testing.T) {
//	    suite.Run(t, new(MyTestSuite))
//	}
type RedisTestSuite struct {
	suite.Suite

	// MiniRedis is the embedded miniredis instance. Use it for direct
	// manipulation (TTL inspection, FastForward).
	MiniRedis *miniredis.Miniredis

	// RedisClient is the namespace-aware client connected to miniredis.
	RedisClient *redisutil.Client

	// Ctx is a background context for Redis operations.
	Ctx context.Context
}

// SetupSuite runs once before all tests in the suite.
func (s *RedisTestSuite) SetupSuite() {
	mr, err := miniredis.Run()
	s.Require().NoError(err, "failed to create miniredis")
	s.MiniRedis = mr

	s.Ctx = context.Background()

	client, err := redisutil.NewClient(s.Ctx, redisutil.ClientConfig{
		URL: fmt.Sprintf("redis://%s", mr.Addr()),
	})
	s.Require().NoError(err, "failed to create Redis client")
	s.RedisClient = client
}

// SetupTest flushes all data before each test for isolation.
func (s *RedisTestSuite) SetupTest() {
	s.MiniRedis.FlushAll()
}

// TearDownSuite closes the shared miniredis instance.
func (s *RedisTestSuite) TearDownSuite() {
	if s.RedisClient != nil {
		_ = s.RedisClient.Close()
	}
	if s.MiniRedis != nil {
		s.MiniRedis.Close()
	}
}

// RequireKeyExists asserts that a key exists in Redis.
func (s *RedisTestSuite) RequireKeyExists(key string) {
	exists, err := s.RedisClient.Exists(s.Ctx, key).Result()
	s.Require().NoError(err, "failed to check key existence")
	s.Require().Equal(int64(1), exists, "key %q should exist", key)
}

// RequireKeyNotExists asserts that a key does NOT exist in Redis.
func (s *RedisTestSuite) RequireKeyNotExists(key string) {
	exists, err := s.RedisClient.Exists(s.Ctx, key).Result()
	s.Require().NoError(err, "failed to check key existence")
	s.Require().Equal(int64(0), exists, "key %q should not exist", key)
}

// GetKey returns a string value, or "" when the key is absent.
func (s *RedisTestSuite) GetKey(key string) string {
	val, err := s.RedisClient.Get(s.Ctx, key).Result()
	if err == redis.Nil {
		return ""
	}
	s.Require().NoError(err, "failed to get key %q", key)
	return val
}

// SetKey sets a string key with no expiration.
func (s *RedisTestSuite) SetKey(key, value string) {
	err := s.RedisClient.Set(s.Ctx, key, value, 0).Err()
	s.Require().NoError(err, "failed to set key %q", key)
}
