package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const KEY_WEBHOOK_LOCK = "webhook:lock:%s:%s"

func LockKey(transactionID string, status string) string {
	return fmt.Sprintf(KEY_WEBHOOK_LOCK, transactionID, status)
}

// Locker serialises concurrent deliveries of the same event. Acquire reports false when
// another holder owns key.
type Locker interface {
	Acquire(c context.Context, key string, ttl time.Duration) (token string, acquired bool, err error)
	Release(c context.Context, key string, token string) error
}

// release only deletes the key while it still holds the caller's token so an expired lock
// taken over by another delivery is left alone.
var release = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) Acquire(c context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	acquired, err := l.client.SetNX(c, key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed acquiring lock=%s with error=%w", key, err)
	}
	return token, acquired, nil
}

func (l *RedisLocker) Release(c context.Context, key string, token string) error {
	if err := release.Run(c, l.client, []string{key}, token).Err(); err != nil {
		return fmt.Errorf("failed releasing lock=%s with error=%w", key, err)
	}
	return nil
}
