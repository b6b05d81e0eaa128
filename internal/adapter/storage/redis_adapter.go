package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/shop-admin/internal/port"
)

const stateKeyPrefix = "shopadmin:state:"

// Each entry is a hash {payload, version}. The write only lands when the
// stored version still matches the caller's.
var compareAndSetScript = redis.NewScript(`
local key = KEYS[1]
local expected = tonumber(ARGV[1])

local current = tonumber(redis.call('HGET', key, 'version') or '0')
if current ~= expected then
	return 0
end

redis.call('HSET', key, 'payload', ARGV[2], 'version', current + 1)
return 1
`)

type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore namespaces entries under prefix, or under the default
// "shopadmin:state:" when prefix is empty.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = stateKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) Load(ctx context.Context, key string) (port.Snapshot, error) {
	values, err := r.client.HMGet(ctx, r.prefix+key, "payload", "version").Result()
	if err != nil {
		return port.Snapshot{}, fmt.Errorf("hmget %s: %w", key, err)
	}

	var snap port.Snapshot
	if payload, ok := values[0].(string); ok {
		snap.Data = []byte(payload)
	}
	if version, ok := values[1].(string); ok {
		snap.Version, err = strconv.ParseInt(version, 10, 64)
		if err != nil {
			return port.Snapshot{}, fmt.Errorf("parse version of %s: %w", key, err)
		}
	}
	return snap, nil
}

func (r *RedisStore) Store(ctx context.Context, key string, data []byte, expectedVersion int64) error {
	result, err := compareAndSetScript.Run(ctx, r.client, []string{r.prefix + key}, expectedVersion, data).Int()
	if err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	if result != 1 {
		return port.ErrOptimisticLock
	}
	return nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Clear removes an entry entirely. Used by tests.
func (r *RedisStore) Clear(ctx context.Context, key string) error {
	err := r.client.Del(ctx, r.prefix+key).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}
