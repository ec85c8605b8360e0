// Package cache contains redis backed response cache.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("layer", "cache").WithField("package", "cache")

const scanCount = 100

// Cache ...
type Cache interface {
	// Get returns cached value and false if key is absent.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Invalidate removes every key starting with prefix.
	Invalidate(ctx context.Context, prefix string) error
}

// Redis is a cache over redis keyspace limited by namespace.
type Redis struct {
	c         redis.UniversalClient
	namespace string
}

// New returns cache which keeps keys under namespace.
func New(c redis.UniversalClient, namespace string) *Redis {
	return &Redis{
		c:         c,
		namespace: namespace,
	}
}

// Get ...
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.c.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %s: %w", key, err)
	}

	return b, true, nil
}

// Set ...
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.c.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	return nil
}

// Invalidate ...
func (r *Redis) Invalidate(ctx context.Context, prefix string) error {
	match := escapeGlob(r.key(prefix)) + "*"

	var cursor uint64
	for {
		keys, next, err := r.c.Scan(ctx, cursor, match, scanCount).Result()
		if err != nil {
			return fmt.Errorf("failed to scan %s: %w", prefix, err)
		}

		if len(keys) > 0 {
			if err := r.c.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete keys: %w", err)
			}
			log.WithField("prefix", prefix).Debugf("%d keys invalidated", len(keys))
		}

		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Ping ...
func (r *Redis) Ping(ctx context.Context) error {
	return r.c.Ping(ctx).Err()
}

func (r *Redis) key(k string) string {
	return r.namespace + ":" + k
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch c {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}
