package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cuongbtq/tube-insights/internal/domain"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// Locker grants exclusive runs per job id. Acquire returns domain.ErrJobLocked when the id is held.
type Locker interface {
	Acquire(ctx context.Context, jobID string, ttl time.Duration) (release func(), err error)
}

// LocalLocker serializes runs inside one process
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocalLocker creates a LocalLocker
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]struct{})}
}

// Acquire ignores ttl; the lock lives until release is called
func (l *LocalLocker) Acquire(ctx context.Context, jobID string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[jobID]; ok {
		return nil, domain.ErrJobLocked
	}
	l.held[jobID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, jobID)
			l.mu.Unlock()
		})
	}, nil
}

// releaseScript deletes the key only while it still carries our token
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker shares run locks across worker processes
type RedisLocker struct {
	client *goredis.Client
	prefix string
}

// NewRedisLocker creates a RedisLocker storing keys under prefix
func NewRedisLocker(client *goredis.Client, prefix string) *RedisLocker {
	if prefix == "" {
		prefix = "tube-insights:job-lock:"
	}
	return &RedisLocker{client: client, prefix: prefix}
}

// Acquire sets the lock key with SET NX PX; the key expires after ttl if release never runs
func (l *RedisLocker) Acquire(ctx context.Context, jobID string, ttl time.Duration) (func(), error) {
	key := l.prefix + jobID
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire job lock: %w", err)
	}
	if !ok {
		return nil, domain.ErrJobLocked
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.client, []string{key}, token).Err()
	}, nil
}
