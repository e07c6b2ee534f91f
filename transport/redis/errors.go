package redis

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
)

// IsNotFound returns true if the error is the go-redis nil reply, meaning
// the requested key does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}

// IsTransient returns true for errors worth retrying on the next wake:
// connection drops, timeouts, and Redis OOM. Redis returns "OOM command not
// allowed when used memory > 'maxmemory'" for writes under memory pressure;
// those clear once TTL-bearing keys expire.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "OOM") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "i/o timeout") ||
		strings.Contains(msg, "EOF")
}
