package callcontext

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "voiceline:call:"

// RedisCache mirrors call contexts in Redis so multiple server instances can
// share the hot path. Entries carry the same TTL the memory driver uses.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(addr string, ttl time.Duration) (*RedisCache, error) {
	if ttl <= 0 {
		ttl = time.Hour
	}
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}

	return &RedisCache{client: client, ttl: ttl}, nil
}

func (c *RedisCache) Get(ctx context.Context, callID string) (*CallContext, error) {
	data, err := c.client.Get(ctx, redisKeyPrefix+callID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", callID, err)
	}

	var cc CallContext
	if err := json.Unmarshal(data, &cc); err != nil {
		return nil, fmt.Errorf("decoding cached context %s: %w", callID, err)
	}
	return &cc, nil
}

func (c *RedisCache) Put(ctx context.Context, cc *CallContext) error {
	data, err := json.Marshal(cc)
	if err != nil {
		return fmt.Errorf("encoding context %s: %w", cc.CallID, err)
	}
	if err := c.client.Set(ctx, redisKeyPrefix+cc.CallID, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", cc.CallID, err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, callID string) error {
	if err := c.client.Del(ctx, redisKeyPrefix+callID).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", callID, err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
