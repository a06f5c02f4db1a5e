package lock

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_AlwaysGrants(t *testing.T) {
	release, ok, err := Local{}.TryAcquire(context.Background(), "sweep", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NotNil(t, release)
	release(context.Background())
}

func TestRedisLocker_UnreachableServerReturnsError(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	locker := NewRedisLocker(client, "maestranza:lease")
	release, ok, err := locker.TryAcquire(context.Background(), "evaluate", time.Minute)

	assert.Error(t, err)
	assert.False(t, ok)
	assert.Nil(t, release)
}

func TestNewRedis_InvalidURL(t *testing.T) {
	_, err := NewRedis(context.Background(), "not-a-url")
	assert.Error(t, err)
}
