package pipeline

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/cuongbtq/tube-insights/internal/domain"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRedis connects to TEST_REDIS_ADDR and skips when it is unset
func newTestRedis(t *testing.T) *goredis.Client {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	client := goredis.NewClient(&goredis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisLocker(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	prefix := "tube-insights-test:" + uuid.NewString() + ":"
	a := NewRedisLocker(client, prefix)
	b := NewRedisLocker(client, prefix)
	jobID := uuid.NewString()

	release, err := a.Acquire(ctx, jobID, time.Minute)
	require.NoError(t, err)

	_, err = b.Acquire(ctx, jobID, time.Minute)
	assert.ErrorIs(t, err, domain.ErrJobLocked)

	release()
	exists, err := client.Exists(ctx, prefix+jobID).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)

	release, err = b.Acquire(ctx, jobID, time.Minute)
	require.NoError(t, err)
	release()
}

func TestRedisLocker_ReleaseKeepsForeignLock(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	prefix := "tube-insights-test:" + uuid.NewString() + ":"
	locker := NewRedisLocker(client, prefix)
	jobID := uuid.NewString()

	release, err := locker.Acquire(ctx, jobID, 50*time.Millisecond)
	require.NoError(t, err)

	// the first lock expires and another holder takes the key
	time.Sleep(100 * time.Millisecond)
	other, err := locker.Acquire(ctx, jobID, time.Minute)
	require.NoError(t, err)
	defer other()

	release()
	exists, err := client.Exists(ctx, prefix+jobID).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)
}
