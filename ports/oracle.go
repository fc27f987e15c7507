package ports

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Ciphertext is an encrypted payload as referenced on the ledger
type Ciphertext struct {
	Handle common.Hash
	Proof  []byte
}

// Oracle encrypts and decrypts message content.
// Unsupported oracles return the content hash as handle and refuse to decrypt.
type Oracle interface {
	Supported() bool
	Encrypt(ctx context.Context, plaintext []byte) (Ciphertext, error)
	Decrypt(ctx context.Context, handle common.Hash) ([]byte, error)
}
