package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const redisOpTimeout = 5 * time.Second

// RedisCache implements Cache on a shared Redis, so several ingest hosts
// spend the API quota once between them.
type RedisCache struct {
	rdb    *goredis.Client
	prefix string
}

// NewRedisCache connects to url (redis://[:password@]host:port/db) and pings it.
func NewRedisCache(url string) (*RedisCache, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opts.DialTimeout = redisOpTimeout

	rdb := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisCache{rdb: rdb, prefix: "mediagraph:"}, nil
}

// Set stores a value; a ttl of zero or less never expires
func (c *RedisCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	return c.rdb.Set(ctx, c.prefix+key, value, ttl).Err()
}

// Get retrieves a value
func (c *RedisCache) Get(key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	val, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Delete removes a value
func (c *RedisCache) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	return c.rdb.Del(ctx, c.prefix+key).Err()
}

// Close closes the connection pool
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

// Open picks the backend: a redis:// or rediss:// url wins, otherwise badger
// at path.
func Open(path, url string) (Cache, error) {
	if url != "" {
		rc, err := NewRedisCache(url)
		if err != nil {
			return nil, err
		}
		return rc, nil
	}
	bc, err := NewBadgerCache(path)
	if err != nil {
		return nil, err
	}
	return bc, nil
}
