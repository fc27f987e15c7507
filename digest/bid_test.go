package digest

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/encryptme/core"
)

func TestBidHashEncoding(t *testing.T) {
	salt, err := SaltFromString("pepper")
	require.NoError(t, err)

	got, err := BidHash(big.NewInt(42), salt)
	require.NoError(t, err)

	want := crypto.Keccak256Hash(common.LeftPadBytes([]byte{42}, 32), salt[:])
	assert.Equal(t, want, got)
}

func TestBidHashBinding(t *testing.T) {
	salt, err := SaltFromString("pepper")
	require.NoError(t, err)
	other, err := SaltFromString("salt")
	require.NoError(t, err)

	base, err := BidHash(big.NewInt(42), salt)
	require.NoError(t, err)

	for _, amount := range []int64{0, 41, 43, 420} {
		h, err := BidHash(big.NewInt(amount), salt)
		require.NoError(t, err)
		assert.NotEqual(t, base, h, "amount %d", amount)
	}
	h, err := BidHash(big.NewInt(42), other)
	require.NoError(t, err)
	assert.NotEqual(t, base, h)
}

func TestBidHashRejectsOutOfRange(t *testing.T) {
	_, err := BidHash(big.NewInt(-1), [32]byte{})
	assert.ErrorIs(t, err, core.ErrEncoding)
	_, err = BidHash(new(big.Int).Lsh(big.NewInt(1), 256), [32]byte{})
	assert.ErrorIs(t, err, core.ErrEncoding)
	_, err = BidHash(nil, [32]byte{})
	assert.ErrorIs(t, err, core.ErrEncoding)
}

func TestSaltParsing(t *testing.T) {
	salt, err := SaltFromString("pepper")
	require.NoError(t, err)
	assert.Equal(t, []byte("pepper"), salt[:6])
	assert.Equal(t, make([]byte, 26), salt[6:])

	_, err = SaltFromString("0123456789012345678901234567890123")
	assert.ErrorIs(t, err, core.ErrEncoding)

	hexSalt := "0x" + common.Bytes2Hex(salt[:])
	parsed, err := ParseSalt(hexSalt)
	require.NoError(t, err)
	assert.Equal(t, salt, parsed)

	parsed, err = ParseSalt("pepper")
	require.NoError(t, err)
	assert.Equal(t, salt, parsed)

	r1, err := RandomSalt()
	require.NoError(t, err)
	r2, err := RandomSalt()
	require.NoError(t, err)
	assert.NotEqual(t, r1, r2)
}

func TestParseAmount(t *testing.T) {
	v, err := ParseAmount("42", 0)
	require.NoError(t, err)
	assert.Zero(t, big.NewInt(42).Cmp(v))

	v, err = ParseAmount("1.5", 18)
	require.NoError(t, err)
	want, _ := new(big.Int).SetString("1500000000000000000", 10)
	assert.Zero(t, want.Cmp(v))

	_, err = ParseAmount("1.5", 0)
	assert.ErrorIs(t, err, core.ErrEncoding)
	_, err = ParseAmount("-3", 0)
	assert.ErrorIs(t, err, core.ErrEncoding)
	_, err = ParseAmount("abc", 0)
	assert.ErrorIs(t, err, core.ErrEncoding)
	_, err = ParseAmount("1e80", 0)
	assert.ErrorIs(t, err, core.ErrEncoding)
}
