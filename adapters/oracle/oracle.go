// Package oracle provides encryption oracles for message content. The ledger
// only stores a 32-byte handle; the oracle maps handles back to plaintext.
package oracle

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"sync"

	"filippo.io/age"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"

	"github.com/layer-3/encryptme/core"
	"github.com/layer-3/encryptme/ports"
)

// DefaultChains are the networks with a deployed encryption oracle
var DefaultChains = []uint64{11155111, 31337}

// AgeOracle encrypts with age to an X25519 identity and keeps ciphertexts
// keyed by their keccak256 hash, which is the handle stored on the ledger.
type AgeOracle struct {
	identity *age.X25519Identity

	mu          sync.RWMutex
	ciphertexts map[common.Hash][]byte

	log log.Logger
}

var _ ports.Oracle = (*AgeOracle)(nil)

// NewAgeOracle creates an oracle for identity; a nil identity generates one
func NewAgeOracle(identity *age.X25519Identity) (*AgeOracle, error) {
	if identity == nil {
		var err error
		identity, err = age.GenerateX25519Identity()
		if err != nil {
			return nil, fmt.Errorf("generate identity: %w", err)
		}
	}
	return &AgeOracle{
		identity:    identity,
		ciphertexts: make(map[common.Hash][]byte),
		log:         log.New("module", "oracle"),
	}, nil
}

// ParseAgeOracle creates an oracle from an AGE-SECRET-KEY-1 string
func ParseAgeOracle(secret string) (*AgeOracle, error) {
	identity, err := age.ParseX25519Identity(secret)
	if err != nil {
		return nil, fmt.Errorf("parse identity: %w", err)
	}
	return NewAgeOracle(identity)
}

// Recipient returns the public key messages are encrypted to
func (o *AgeOracle) Recipient() string {
	return o.identity.Recipient().String()
}

func (o *AgeOracle) Supported() bool { return true }

// Encrypt seals plaintext and registers the ciphertext under its handle.
// The proof is the age header and body, so any holder of the identity can
// decrypt it without the registry.
func (o *AgeOracle) Encrypt(ctx context.Context, plaintext []byte) (ports.Ciphertext, error) {
	if err := ctx.Err(); err != nil {
		return ports.Ciphertext{}, err
	}
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, o.identity.Recipient())
	if err != nil {
		return ports.Ciphertext{}, fmt.Errorf("encrypt: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return ports.Ciphertext{}, fmt.Errorf("encrypt: %w", err)
	}
	if err := w.Close(); err != nil {
		return ports.Ciphertext{}, fmt.Errorf("encrypt: %w", err)
	}

	sealed := buf.Bytes()
	handle := crypto.Keccak256Hash(sealed)

	o.mu.Lock()
	o.ciphertexts[handle] = sealed
	o.mu.Unlock()

	return ports.Ciphertext{Handle: handle, Proof: sealed}, nil
}

// Decrypt opens the ciphertext registered under handle
func (o *AgeOracle) Decrypt(ctx context.Context, handle common.Hash) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o.mu.RLock()
	sealed, ok := o.ciphertexts[handle]
	o.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("handle %s: %w", handle, core.ErrUnknownMessage)
	}
	return o.Open(sealed)
}

// Open decrypts a ciphertext taken from a message proof and registers it
func (o *AgeOracle) Open(sealed []byte) ([]byte, error) {
	r, err := age.Decrypt(bytes.NewReader(sealed), o.identity)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}

	o.mu.Lock()
	o.ciphertexts[crypto.Keccak256Hash(sealed)] = slices.Clone(sealed)
	o.mu.Unlock()
	return plaintext, nil
}

// HashOracle is used on networks without an encryption oracle. The handle is
// the plaintext hash, which hides nothing a guesser could not confirm.
type HashOracle struct{}

var _ ports.Oracle = HashOracle{}

func (HashOracle) Supported() bool { return false }

// Encrypt commits to plaintext without hiding it
func (HashOracle) Encrypt(ctx context.Context, plaintext []byte) (ports.Ciphertext, error) {
	if err := ctx.Err(); err != nil {
		return ports.Ciphertext{}, err
	}
	return ports.Ciphertext{Handle: crypto.Keccak256Hash(plaintext), Proof: []byte{}}, nil
}

// Decrypt always fails with ErrDecryptUnsupported
func (HashOracle) Decrypt(context.Context, common.Hash) ([]byte, error) {
	return nil, core.ErrDecryptUnsupported
}

// ForChain returns oracle when chainID is one of supported, and a
// HashOracle otherwise
func ForChain(chainID uint64, supported []uint64, oracle ports.Oracle) ports.Oracle {
	if oracle != nil && slices.Contains(supported, chainID) {
		return oracle
	}
	log.Warn("Encryption unavailable on this network, storing content hashes", "chain", chainID)
	return HashOracle{}
}
