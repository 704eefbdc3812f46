package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const opTimeout = 500 * time.Millisecond

// RedisCache is a BytesCache backed by Redis, for running several engine
// replicas behind one stats cache. Keys are namespaced by the prefix.
type RedisCache struct {
	cli    *redis.Client
	prefix string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

func NewRedisCache(cfg RedisConfig) *RedisCache {
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "stats"
	}
	return &RedisCache{cli: rdb, prefix: prefix}
}

func (r *RedisCache) key(k string) string { return r.prefix + ":" + k }

func (r *RedisCache) GetBytes(key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	b, err := r.cli.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

func (r *RedisCache) SetBytes(key string, value []byte, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return r.cli.Set(ctx, r.key(key), value, ttl).Err()
}

func (r *RedisCache) Close() error { return r.cli.Close() }
