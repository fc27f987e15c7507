package core

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// SessionState is the ledger synchronization state of a local session
type SessionState string

const (
	// SessionLocalOnly means the session was signed but not registered on the ledger
	SessionLocalOnly SessionState = "local"

	// SessionLocalAndLedger means the ledger holds a matching session
	SessionLocalAndLedger SessionState = "ledger"
)

// AuthState is the authentication state reported for the connected account
type AuthState string

const (
	AuthNoSession      AuthState = "none"
	AuthLocalOnly      AuthState = "local"
	AuthLocalAndLedger AuthState = "ledger"
	AuthExpired        AuthState = "expired"
)

// Session represents a wallet-signed, bounded-lifetime session
type Session struct {
	Address   common.Address `json:"address" cbor:"address"`
	Message   string         `json:"message" cbor:"message"`
	Signature hexutil.Bytes  `json:"signature" cbor:"signature"`
	SignedAt  int64          `json:"signedAt" cbor:"signedAt"`   // unix milliseconds
	ExpiresAt int64          `json:"expiresAt" cbor:"expiresAt"` // unix milliseconds
	State     SessionState   `json:"state" cbor:"state"`
}

// Validate checks the structural invariants of a session record
func (s *Session) Validate() error {
	if s == nil || s.Address == (common.Address{}) || s.Message == "" || len(s.Signature) == 0 {
		return ErrInvalidSession
	}
	if s.SignedAt >= s.ExpiresAt {
		return ErrInvalidSession
	}
	switch s.State {
	case SessionLocalOnly, SessionLocalAndLedger:
	default:
		return ErrInvalidSession
	}
	return nil
}

// Expired reports whether the session is past its expiry at now
func (s *Session) Expired(now time.Time) bool {
	return now.UnixMilli() >= s.ExpiresAt
}

// HasLedgerSession reports whether the ledger mirrors this session
func (s *Session) HasLedgerSession() bool {
	return s.State == SessionLocalAndLedger
}

// ExpiresAtSeconds returns the expiry as unix seconds, as the ledger expects it
func (s *Session) ExpiresAtSeconds() uint64 {
	return uint64(s.ExpiresAt / 1000)
}

// ExpiryTime returns the expiry as a time.Time
func (s *Session) ExpiryTime() time.Time {
	return time.UnixMilli(s.ExpiresAt)
}

// WithLedgerSession returns a copy marked as mirrored on the ledger
func (s Session) WithLedgerSession() *Session {
	s.State = SessionLocalAndLedger
	return &s
}

// WithoutLedgerSession returns a copy marked as local only
func (s Session) WithoutLedgerSession() *Session {
	s.State = SessionLocalOnly
	return &s
}

// SessionRequest is the ledger session registration payload
type SessionRequest struct {
	From      common.Address
	Message   string
	Signature []byte
	ExpiresAt uint64 // unix seconds
}
