package ports

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// SessionClaims is the gateway view of a ledger session token
type SessionClaims struct {
	ID        string
	Address   common.Address
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Tokenizer converts between ledger sessions and bearer tokens
type Tokenizer interface {
	SessionToToken(claims *SessionClaims) (string, error)
	TokenToSession(token string) (*SessionClaims, error)
}
