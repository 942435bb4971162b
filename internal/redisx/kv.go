package redisx

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// KV is a namespaced string store on Redis.
type KV struct {
	rdb *redis.Client
	ns  string
}

func NewKV(rdb *redis.Client, namespace string) *KV {
	return &KV{rdb: rdb, ns: namespace}
}

// Get returns ok=false for a missing key.
func (k *KV) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := k.rdb.Get(ctx, Key(k.ns, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (k *KV) Set(ctx context.Context, key, value string) error {
	return k.rdb.Set(ctx, Key(k.ns, key), value, TTLSession).Err()
}

func (k *KV) Delete(ctx context.Context, key string) error {
	return k.rdb.Del(ctx, Key(k.ns, key)).Err()
}
