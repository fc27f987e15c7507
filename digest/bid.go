package digest

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/layer-3/encryptme/core"
)

// BidHash returns keccak256(abi.encode(uint256 amount, bytes32 salt)).
// Both fields are 32 bytes wide, so this equals the packed encoding.
func BidHash(amount *big.Int, salt [32]byte) (common.Hash, error) {
	if amount == nil || amount.Sign() < 0 {
		return common.Hash{}, fmt.Errorf("bid amount must be non-negative: %w", core.ErrEncoding)
	}
	u, overflow := uint256.FromBig(amount)
	if overflow {
		return common.Hash{}, fmt.Errorf("bid amount overflows uint256: %w", core.ErrEncoding)
	}
	word := u.Bytes32()
	return crypto.Keccak256Hash(word[:], salt[:]), nil
}

// SaltFromString right-pads the UTF-8 bytes of s to 32 bytes, like
// ethers' encodeBytes32String. Strings of 32 bytes or more are rejected;
// the last byte stays zero so the salt remains a terminated string.
func SaltFromString(s string) ([32]byte, error) {
	var salt [32]byte
	if len(s) > 31 {
		return salt, fmt.Errorf("salt %q longer than 31 bytes: %w", s, core.ErrEncoding)
	}
	copy(salt[:], s)
	return salt, nil
}

// SaltFromHex parses a 0x-prefixed 32-byte salt
func SaltFromHex(s string) ([32]byte, error) {
	var salt [32]byte
	if !strings.HasPrefix(s, "0x") || len(s) != 66 {
		return salt, fmt.Errorf("salt must be 0x-prefixed 32 bytes: %w", core.ErrEncoding)
	}
	b := common.FromHex(s)
	if len(b) != 32 {
		return salt, fmt.Errorf("salt must be 32 bytes: %w", core.ErrEncoding)
	}
	copy(salt[:], b)
	return salt, nil
}

// ParseSalt accepts either a 0x-prefixed 32-byte hex value or a short string
func ParseSalt(s string) ([32]byte, error) {
	if strings.HasPrefix(s, "0x") && len(s) == 66 {
		return SaltFromHex(s)
	}
	return SaltFromString(s)
}

// RandomSalt returns 32 random bytes
func RandomSalt() ([32]byte, error) {
	var salt [32]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return salt, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// ParseAmount parses a human amount such as "1.5" into base units of a token
// with the given decimals. Fractions below one base unit, negative values and
// values beyond uint256 are rejected.
func ParseAmount(s string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %v: %w", s, err, core.ErrEncoding)
	}
	if d.Sign() < 0 {
		return nil, fmt.Errorf("amount %q is negative: %w", s, core.ErrEncoding)
	}
	scaled := d.Shift(decimals)
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("amount %q has more than %d decimals: %w", s, decimals, core.ErrEncoding)
	}
	v := scaled.BigInt()
	if _, overflow := uint256.FromBig(v); overflow {
		return nil, fmt.Errorf("amount %q overflows uint256: %w", s, core.ErrEncoding)
	}
	return v, nil
}
