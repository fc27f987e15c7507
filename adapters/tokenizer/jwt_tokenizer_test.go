package tokenizer

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/encryptme/core"
	"github.com/layer-3/encryptme/ports"
)

var alice = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")

func newKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return key
}

func TestSessionTokenRoundTrip(t *testing.T) {
	tk := NewJWTTokenizer(newKey(t))
	now := time.Now().Truncate(time.Second)

	token, err := tk.SessionToToken(&ports.SessionClaims{
		Address:   alice,
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	})
	require.NoError(t, err)

	claims, err := tk.TokenToSession(token)
	require.NoError(t, err)
	assert.Equal(t, alice, claims.Address)
	assert.NotEmpty(t, claims.ID)
	assert.True(t, claims.ExpiresAt.Equal(now.Add(time.Hour)))
	assert.True(t, claims.IssuedAt.Equal(now))
}

func TestSessionTokenRejected(t *testing.T) {
	key := newKey(t)
	tk := NewJWTTokenizer(key)
	now := time.Now()

	expired, err := tk.SessionToToken(&ports.SessionClaims{
		Address:   alice,
		IssuedAt:  now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
	})
	require.NoError(t, err)

	foreign, err := NewJWTTokenizer(newKey(t)).SessionToToken(&ports.SessionClaims{
		Address:   alice,
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	})
	require.NoError(t, err)

	wrongAudience, err := jwt.NewWithClaims(jwt.SigningMethodES256, SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   alice.Hex(),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			Audience:  jwt.ClaimStrings{"session:other"},
		},
	}).SignedString(key)
	require.NoError(t, err)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodES256, SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			Audience:  jwt.ClaimStrings{AudienceSession},
		},
	}).SignedString(key)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"expired":        expired,
		"foreign key":    foreign,
		"wrong audience": wrongAudience,
		"bad subject":    badSubject,
		"garbage":        "not.a.token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := tk.TokenToSession(token)
			assert.ErrorIs(t, err, core.ErrInvalidToken)
		})
	}
}
