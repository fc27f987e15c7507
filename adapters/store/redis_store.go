package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/redis/go-redis/v9"

	"github.com/layer-3/encryptme/core"
	"github.com/layer-3/encryptme/ports"
)

// DefaultRedisPrefix is the key prefix for session records
const DefaultRedisPrefix = "encryptme:session:"

// RedisStore is a Redis implementation of the SessionStore interface.
// Records expire with the session they hold.
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
	log    log.Logger
}

// NewRedisStore creates a new Redis store
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		now:    time.Now,
		log:    log.New("module", "store", "backend", "redis"),
	}
}

var _ ports.SessionStore = (*RedisStore)(nil)

func (s *RedisStore) key(address common.Address) string {
	return s.prefix + strings.ToLower(address.Hex())
}

// Load retrieves the session for address. Unreachable Redis reads as no session.
func (s *RedisStore) Load(ctx context.Context, address common.Address) (*core.Session, error) {
	raw, err := s.client.Get(ctx, s.key(address)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		s.log.Warn("Session record unreadable", "address", address, "err", err)
		return nil, nil
	}

	var session core.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		s.log.Warn("Session record corrupt", "address", address, "err", err)
		return nil, nil
	}
	if session.Validate() != nil || session.Address != address {
		return nil, nil
	}
	return &session, nil
}

// Save stores session with a TTL matching its remaining lifetime
func (s *RedisStore) Save(ctx context.Context, session *core.Session) error {
	if err := session.Validate(); err != nil {
		return err
	}
	ttl := session.ExpiryTime().Sub(s.now())
	if ttl <= 0 {
		return core.ErrSessionExpired
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(session.Address), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Clear deletes the session for address
func (s *RedisStore) Clear(ctx context.Context, address common.Address) error {
	if err := s.client.Del(ctx, s.key(address)).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
