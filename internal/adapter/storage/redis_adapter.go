package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/bizdesk/internal/port"
)

const (
	idempotencyKeyPrefix = "bizdesk:idem:"
	lockKeyPrefix        = "bizdesk:lock:"
	kvKeyPrefix          = "bizdesk:kv:"
)

var (
	_ port.CacheRepository = (*RedisAdapter)(nil)
	_ port.KeyValueStore   = (*RedisAdapter)(nil)
)

var releaseLockScript = redis.NewScript(`
local key = KEYS[1]
local token = ARGV[1]

if redis.call('GET', key) == token then
	return redis.call('DEL', key)
end

return 0
`)

type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, idempotencyKeyPrefix+key, 1, ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) ClearIdempotency(ctx context.Context, key string) error {
	return r.client.Del(ctx, idempotencyKeyPrefix+key).Err()
}

func (r *RedisAdapter) AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, lockKeyPrefix+key, token, ttl).Result()
}

// ReleaseLock deletes the lock only while it still holds token, so an expired
// lock taken over by another caller is left alone.
func (r *RedisAdapter) ReleaseLock(ctx context.Context, key, token string) error {
	return releaseLockScript.Run(ctx, r.client, []string{lockKeyPrefix + key}, token).Err()
}

func (r *RedisAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, kvKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, port.ErrNotFound
	}
	return val, err
}

func (r *RedisAdapter) Set(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, kvKeyPrefix+key, value, 0).Err()
}

func (r *RedisAdapter) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, kvKeyPrefix+key).Err()
}
