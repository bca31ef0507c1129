// Package redis provides a Redis-backed implementation of the
// storage.Storage interface. The whole collection lives in one string key,
// so a plain GET / SET pair is all that is needed.
package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/go-redis/redis/v8"

	"github.com/aanand-mishra/student-records/internal/storage"
)

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	// Prefix is prepended to every key, e.g. "student-records:".
	Prefix string
}

// Redis implements storage.Storage on top of a go-redis client.
type Redis struct {
	Client *goredis.Client
	prefix string
}

// New creates a client and pings the server so a wrong address fails at
// startup instead of on the first write.
func New(ctx context.Context, opts Options) (*Redis, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis.New: ping %s: %w", opts.Addr, err)
	}

	return &Redis{Client: rdb, prefix: opts.Prefix}, nil
}

// Read fetches the blob for key. goredis.Nil means the key was never set.
func (r *Redis) Read(ctx context.Context, key string) ([]byte, error) {
	blob, err := r.Client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("Read: get %s: %w", key, err)
	}
	return blob, nil
}

// Write replaces the blob for key. SET is atomic, and 0 means no expiry.
func (r *Redis) Write(ctx context.Context, key string, blob []byte) error {
	if err := r.Client.Set(ctx, r.prefix+key, blob, 0).Err(); err != nil {
		return fmt.Errorf("Write: set %s: %w", key, err)
	}
	return nil
}

// Close closes the client's connection pool.
func (r *Redis) Close() error {
	return r.Client.Close()
}
