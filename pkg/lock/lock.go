// Package lock provides the short-lived lease the scheduler takes so that
// only one replica runs a sweep at a time.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker grants exclusive leases by name.
type Locker interface {
	// TryAcquire returns acquired=false without error when another holder
	// owns the lease. release is non-nil only when acquired.
	TryAcquire(ctx context.Context, name string, ttl time.Duration) (release func(context.Context), acquired bool, err error)
}

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with SET NX PX.
type RedisLocker struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis parses redisURL, pings the server and returns a client.
func NewRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

// NewRedisLocker creates a locker whose keys are "<prefix>:<name>".
func NewRedisLocker(client redis.UniversalClient, prefix string) *RedisLocker {
	return &RedisLocker{client: client, prefix: prefix}
}

// TryAcquire implements Locker
func (l *RedisLocker) TryAcquire(ctx context.Context, name string, ttl time.Duration) (func(context.Context), bool, error) {
	key := l.prefix + ":" + name
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func(ctx context.Context) {
		_ = releaseScript.Run(ctx, l.client, []string{key}, token).Err()
	}
	return release, true, nil
}

// Local always grants the lease. Used when Redis is disabled.
type Local struct{}

// TryAcquire implements Locker
func (Local) TryAcquire(context.Context, string, time.Duration) (func(context.Context), bool, error) {
	return func(context.Context) {}, true, nil
}
