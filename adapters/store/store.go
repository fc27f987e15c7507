// Package store holds the SessionStore backends.
package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/layer-3/encryptme/ports"
)

// Backend kinds accepted by Open
const (
	KindMemory = "memory"
	KindFile   = "file"
	KindRedis  = "redis"
)

// Open builds the session store named by kind
func Open(ctx context.Context, kind, path, redisURL, prefix string) (ports.SessionStore, error) {
	switch kind {
	case "", KindMemory:
		return NewMemoryStore(), nil
	case KindFile:
		return NewFileStore(path)
	case KindRedis:
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to reach Redis: %w", err)
		}
		return NewRedisStore(client, prefix), nil
	default:
		return nil, fmt.Errorf("unknown session store %q", kind)
	}
}
