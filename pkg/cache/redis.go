package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const scanBatch = 200

// releaseScript drops a lease only while this process still holds it. A
// lease that expired and was re-acquired elsewhere survives.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisCache is the shared Store and Locker. Values are JSON and every key
// lives under Prefix.
type RedisCache struct {
	rdb    *redis.Client
	prefix string
	owner  string
}

// NewRedisCache connects and pings before returning.
func NewRedisCache(opts ...RedisOption) (*RedisCache, error) {
	cfg := RedisConfig{Host: "localhost", Port: 6379, PoolSize: 10, MinIdleConns: 2, Prefix: "chainpulse"}
	for _, opt := range opts {
		opt(&cfg)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return &RedisCache{rdb: rdb, prefix: cfg.Prefix + ":", owner: uuid.NewString()}, nil
}

func (c *RedisCache) Close() error { return c.rdb.Close() }

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.rdb.Set(ctx, c.prefix+key, raw, ttl).Err()
}

// Get decodes the stored value into dest. A missing key is ErrCacheMiss.
func (c *RedisCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return ErrCacheMiss
	case err != nil:
		return fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, c.prefix+k)
	}
	return c.unlink(ctx, full)
}

// DeleteByPattern removes every key matching pattern. It iterates with SCAN
// and unlinks in batches.
func (c *RedisCache) DeleteByPattern(ctx context.Context, pattern string) error {
	iter := c.rdb.Scan(ctx, 0, c.prefix+pattern, scanBatch).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) < scanBatch {
			continue
		}
		if err := c.unlink(ctx, batch); err != nil {
			return err
		}
		batch = batch[:0]
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan %s: %w", pattern, err)
	}
	return c.unlink(ctx, batch)
}

func (c *RedisCache) unlink(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Unlink(ctx, keys...).Err()
}

// TryLock takes key for ttl if nobody holds it.
func (c *RedisCache) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, c.prefix+key, c.owner, ttl).Result()
}

func (c *RedisCache) Unlock(ctx context.Context, key string) error {
	return releaseScript.Run(ctx, c.rdb, []string{c.prefix + key}, c.owner).Err()
}
