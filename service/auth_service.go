package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"

	"github.com/layer-3/encryptme/core"
	"github.com/layer-3/encryptme/internal/await"
	"github.com/layer-3/encryptme/internal/eth"
	"github.com/layer-3/encryptme/ports"
)

// DefaultTokenTTL caps the lifetime of a gateway token
const DefaultTokenTTL = time.Hour

// AuthService exchanges wallet-signed sessions for gateway bearer tokens.
// A token is only honored while the ledger still holds the session.
type AuthService struct {
	tokenizer ports.Tokenizer
	ledger    ports.SessionLedger
	eventPub  ports.EventPublisher

	tokenTTL    time.Duration
	readTimeout time.Duration
	now         func() time.Time

	log log.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	tokenizer ports.Tokenizer,
	ledger ports.SessionLedger,
	eventPub ports.EventPublisher,
) *AuthService {
	return &AuthService{
		tokenizer:   tokenizer,
		ledger:      ledger,
		eventPub:    eventPub,
		tokenTTL:    DefaultTokenTTL,
		readTimeout: DefaultReadTimeout,
		now:         time.Now,
		log:         log.New("module", "auth"),
	}
}

// WithTokenTTL sets the token lifetime cap
func (s *AuthService) WithTokenTTL(ttl time.Duration) *AuthService {
	if ttl > 0 {
		s.tokenTTL = ttl
	}
	return s
}

// WithClock replaces time.Now
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// Login registers a signed session on the ledger and returns a token for it.
// The token expires with the session or after the token TTL, whichever is first.
func (s *AuthService) Login(ctx context.Context, req core.SessionRequest) (string, time.Time, error) {
	if !eth.Verify(req.From, []byte(req.Message), req.Signature) {
		return "", time.Time{}, core.ErrInvalidSignature
	}

	if err := s.ledger.CreateSession(ctx, req); err != nil {
		return "", time.Time{}, fmt.Errorf("create session: %w", err)
	}

	now := s.now()
	expires := time.Unix(int64(req.ExpiresAt), 0)
	if limit := now.Add(s.tokenTTL); limit.Before(expires) {
		expires = limit
	}

	token, err := s.tokenizer.SessionToToken(&ports.SessionClaims{
		ID:        uuid.NewString(),
		Address:   req.From,
		IssuedAt:  now,
		ExpiresAt: expires,
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to create token: %w", err)
	}

	s.log.Info("Gateway login", "address", req.From, "expires", expires)
	s.publish(ctx, ports.EventSignedIn, req)
	return token, expires, nil
}

// ValidateToken parses token and checks the ledger still holds its session
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*ports.SessionClaims, error) {
	claims, err := s.tokenizer.TokenToSession(token)
	if err != nil {
		return nil, err
	}

	valid, err := await.WithTimeout(ctx, s.readTimeout, func(ctx context.Context) (bool, error) {
		return s.ledger.HasValidSession(ctx, claims.Address)
	})
	if err != nil {
		return nil, fmt.Errorf("check session: %w", err)
	}
	if !valid {
		return nil, core.ErrNoLedgerSession
	}
	return claims, nil
}

// Logout drops the ledger session behind token when the ledger supports it
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.tokenizer.TokenToSession(token)
	if err != nil {
		return err
	}

	if revoker, ok := s.ledger.(ports.SessionRevoker); ok {
		if err := revoker.RevokeSession(ctx, claims.Address); err != nil && !errors.Is(err, core.ErrNoLedgerSession) {
			return fmt.Errorf("revoke session: %w", err)
		}
	}

	if s.eventPub != nil {
		event := ports.Event{Kind: ports.EventSignedOut, Address: claims.Address.Hex(), At: s.now().UnixMilli()}
		if err := s.eventPub.Publish(ctx, ports.TopicSession, event); err != nil {
			// the session is already revoked, which is the part that matters
			s.log.Warn("Failed to publish logout event", "err", err)
		}
	}
	return nil
}

func (s *AuthService) publish(ctx context.Context, kind string, req core.SessionRequest) {
	if s.eventPub == nil {
		return
	}
	event := ports.Event{Kind: kind, Address: req.From.Hex(), At: s.now().UnixMilli()}
	if err := s.eventPub.Publish(ctx, ports.TopicSession, event); err != nil {
		s.log.Warn("Failed to publish event", "kind", kind, "err", err)
	}
}
