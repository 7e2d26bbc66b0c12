package utils

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const runLockKeyPrefix = "planz:run_lock:"

// compare-and-delete so a lock that expired and was taken over by another run
// is not released by the previous holder.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisClient struct {
	inner *redis.Client
}

// GetRedisClient returns nil when REDIS_HOST is not configured.
func GetRedisClient() *RedisClient {
	if os.Getenv("REDIS_HOST") == "" {
		return nil
	}
	return &RedisClient{
		inner: redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%s", os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT")),
			Password: os.Getenv("REDIS_PASSWD"),
			DB:       0, // use default DB
		})}
}

// RunLock keeps two batch runs of the same job from overlapping across
// processes.
type RunLock struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration
}

func RunLockKey(job string) string {
	return runLockKeyPrefix + job
}

func (r *RedisClient) NewRunLock(job string, ttl time.Duration) *RunLock {
	return &RunLock{client: r.inner, key: RunLockKey(job), token: uuid.New().String(), ttl: ttl}
}

// Acquire returns false without error when another run holds the lock.
func (l *RunLock) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return false, errors.Wrapf(err, "fail to acquire run lock %s", l.key)
	}
	return ok, nil
}

func (l *RunLock) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil && err != redis.Nil {
		return errors.Wrapf(err, "fail to release run lock %s", l.key)
	}
	return nil
}
