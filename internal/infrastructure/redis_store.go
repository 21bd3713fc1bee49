package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"buzzchat/internal/interfaces"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "buzzchat"

// RedisStore is the shared "sync storage" driver: several service instances
// can serve the same sellers.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore parses the URL, connects, and pings before returning.
func NewRedisStore(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func redisItemKey(ns, key string) string {
	return fmt.Sprintf("%s:%s:%s", redisKeyPrefix, ns, key)
}

func redisIndexKey(ns string) string {
	return fmt.Sprintf("%s:%s:__keys", redisKeyPrefix, ns)
}

func (r *RedisStore) Get(ctx context.Context, ns, key string) ([]byte, error) {
	v, err := r.client.Get(ctx, redisItemKey(ns, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, interfaces.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", ns, key, err)
	}
	return v, nil
}

func (r *RedisStore) Set(ctx context.Context, ns, key string, value []byte) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, redisItemKey(ns, key), value, 0)
		pipe.SAdd(ctx, redisIndexKey(ns), key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", ns, key, err)
	}
	return nil
}

func (r *RedisStore) SetIfAbsent(ctx context.Context, ns, key string, value []byte) (bool, error) {
	ok, err := r.client.SetNX(ctx, redisItemKey(ns, key), value, 0).Result()
	if err != nil {
		return false, fmt.Errorf("setnx %s/%s: %w", ns, key, err)
	}
	if !ok {
		return false, nil
	}
	if err := r.client.SAdd(ctx, redisIndexKey(ns), key).Err(); err != nil {
		return true, fmt.Errorf("index %s/%s: %w", ns, key, err)
	}
	return true, nil
}

func (r *RedisStore) Remove(ctx context.Context, ns, key string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, redisItemKey(ns, key))
		pipe.SRem(ctx, redisIndexKey(ns), key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("remove %s/%s: %w", ns, key, err)
	}
	return nil
}

func (r *RedisStore) Keys(ctx context.Context, ns string) ([]string, error) {
	keys, err := r.client.SMembers(ctx, redisIndexKey(ns)).Result()
	if err != nil {
		return nil, fmt.Errorf("list keys of %s: %w", ns, err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
