// Package eth holds the signature primitives shared by session and action
// authorization. Both modes use EIP-191 personal message hashing so a single
// wallet signing call serves human-readable session messages and raw action
// digests alike.
package eth

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is the length of an R || S || V signature
const SignatureLength = crypto.SignatureLength

// TextHash returns the EIP-191 personal message hash of data
func TextHash(data []byte) common.Hash {
	return common.BytesToHash(accounts.TextHash(data))
}

// recoveryForm returns a copy of a wallet signature with V lowered from
// {27, 28} to the {0, 1} recovery id. Raw recovery ids are rejected so each
// signature has exactly one accepted encoding.
func recoveryForm(sig []byte) ([]byte, error) {
	if len(sig) != SignatureLength {
		return nil, fmt.Errorf("signature must be %d bytes: %w", SignatureLength, ErrMalformedSignature)
	}
	v := sig[crypto.RecoveryIDOffset]
	if v != 27 && v != 28 {
		return nil, fmt.Errorf("invalid recovery id %d: %w", v, ErrMalformedSignature)
	}
	out := make([]byte, SignatureLength)
	copy(out, sig)
	out[crypto.RecoveryIDOffset] -= 27
	return out, nil
}

// RecoverMessage recovers the signer of a personal-signed message
func RecoverMessage(message, sig []byte) (common.Address, error) {
	return recoverHash(TextHash(message), sig)
}

// Recover recovers the signer of an action digest that was personal-signed as raw bytes
func Recover(digest common.Hash, sig []byte) (common.Address, error) {
	return RecoverMessage(digest.Bytes(), sig)
}

// Verify reports whether sig is claimed's signature over message.
// Any malformed input yields false.
func Verify(claimed common.Address, message, sig []byte) bool {
	if claimed == (common.Address{}) {
		return false
	}
	signer, err := RecoverMessage(message, sig)
	if err != nil {
		return false
	}
	return signer == claimed
}

// VerifyDigest reports whether sig is claimed's signature over digest
func VerifyDigest(claimed common.Address, digest common.Hash, sig []byte) bool {
	return Verify(claimed, digest.Bytes(), sig)
}

func recoverHash(hash common.Hash, sig []byte) (common.Address, error) {
	raw, err := recoveryForm(sig)
	if err != nil {
		return common.Address{}, err
	}
	pub, err := crypto.SigToPub(hash.Bytes(), raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover public key: %w", ErrMalformedSignature)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// SignText personal-signs data with key, returning a wallet-style signature (V in {27, 28})
func SignText(key *ecdsa.PrivateKey, data []byte) ([]byte, error) {
	sig, err := crypto.Sign(TextHash(data).Bytes(), key)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}
