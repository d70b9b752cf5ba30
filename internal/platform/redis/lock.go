// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package redis

import (
	stdctx "context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/truyen/internal/platform/lock"
	"github.com/taibuivan/truyen/pkg/uuid"
)

// releaseScript deletes the key only if it still holds our token, so a holder
// whose lease expired cannot free the next holder's lease.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// releaseTimeout bounds the release call, which runs after the request context is gone.
const releaseTimeout = 2 * time.Second

// Locker implements [lock.Locker] with SET NX PX.
type Locker struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// NewLocker constructs a Redis-backed [lock.Locker]. Keys are namespaced by prefix.
func NewLocker(client *redis.Client, prefix string, logger *slog.Logger) *Locker {
	return &Locker{client: client, prefix: prefix, logger: logger}
}

// Acquire implements [lock.Locker].
func (locker *Locker) Acquire(context stdctx.Context, key string, ttl time.Duration) (lock.Release, error) {
	fullKey := locker.prefix + key
	token := uuid.New()

	acquired, err := locker.client.SetNX(context, fullKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: failed to acquire lock %s: %w", fullKey, err)
	}
	if !acquired {
		return nil, lock.ErrHeld
	}

	return lock.ReleaseOnce(func() {
		releaseCtx, cancel := stdctx.WithTimeout(stdctx.Background(), releaseTimeout)
		defer cancel()

		if err := releaseScript.Run(releaseCtx, locker.client, []string{fullKey}, token).Err(); err != nil {
			locker.logger.Warn("lock_release_failed", slog.String("key", fullKey), slog.Any("error", err))
		}
	}), nil
}
