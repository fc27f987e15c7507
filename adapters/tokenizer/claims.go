package tokenizer

import "github.com/golang-jwt/jwt/v5"

// SessionClaims are the standard claims of a gateway session token. The
// subject is the checksummed account address.
type SessionClaims struct {
	jwt.RegisteredClaims
}
