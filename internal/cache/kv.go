package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/stockfloat/internal/config"
	"github.com/andresuchdata/stockfloat/internal/store"
)

const (
	kvKeyPrefix     = "stockfloat:"
	kvScanBatchSize = 200
	// redis rejects bulk strings above this size
	maxRedisValueBytes = 512 << 20
)

// RedisKV implements store.KV on Redis. Values never expire.
type RedisKV struct {
	client   *redis.Client
	prefix   string
	maxValue int
}

var (
	_ store.KV     = (*RedisKV)(nil)
	_ store.Lister = (*RedisKV)(nil)
)

// NewRedisKV connects using the cache settings.
func NewRedisKV(cfg config.CacheConfig) (*RedisKV, error) {
	client, _, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	return NewRedisKVWithClient(client, 0), nil
}

// NewRedisKVWithClient wraps an existing client. maxValue <= 0 uses the Redis limit.
func NewRedisKVWithClient(client *redis.Client, maxValue int) *RedisKV {
	if maxValue <= 0 {
		maxValue = maxRedisValueBytes
	}
	return &RedisKV{client: client, prefix: kvKeyPrefix, maxValue: maxValue}
}

func (k *RedisKV) key(key string) string {
	return k.prefix + key
}

func (k *RedisKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	payload, err := k.client.Get(ctx, k.key(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}
	return payload, true, nil
}

func (k *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	if len(value) > k.maxValue {
		return fmt.Errorf("%s: %d bytes: %w", key, len(value), store.ErrCapacityExceeded)
	}
	if err := k.client.Set(ctx, k.key(key), value, 0).Err(); err != nil {
		if isOutOfMemory(err) {
			return fmt.Errorf("%s: %w", key, store.ErrCapacityExceeded)
		}
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (k *RedisKV) Remove(ctx context.Context, key string) error {
	if err := k.client.Del(ctx, k.key(key)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// Keys lists stored keys with prefix, without the namespace.
func (k *RedisKV) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys, err := scanKeys(ctx, k.client, k.key(prefix), kvScanBatchSize)
	if err != nil {
		return nil, err
	}
	for i := range keys {
		keys[i] = strings.TrimPrefix(keys[i], k.prefix)
	}
	return keys, nil
}

// Close releases the client.
func (k *RedisKV) Close() error {
	return k.client.Close()
}

func isOutOfMemory(err error) bool {
	var rerr redis.Error
	if errors.As(err, &rerr) {
		return strings.HasPrefix(rerr.Error(), "OOM")
	}
	return strings.HasPrefix(err.Error(), "OOM")
}
