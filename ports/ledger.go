package ports

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/layer-3/encryptme/core"
)

// SessionLedger is the on-chain session registry
type SessionLedger interface {
	CreateSession(ctx context.Context, req core.SessionRequest) error
	HasValidSession(ctx context.Context, address common.Address) (bool, error)
}

// AccountRegistry reports registration and the current nonce of an account
type AccountRegistry interface {
	AccountInfo(ctx context.Context, address common.Address) (core.Account, error)
}

// ChatLedger holds the nonce-governed chat entry points and their reads
type ChatLedger interface {
	RegisterUser(ctx context.Context, req core.RegisterUser) error
	GrantAccess(ctx context.Context, req core.GrantAccess) error
	SendMessage(ctx context.Context, req core.SendMessage) (uint64, error)
	DecryptMessage(ctx context.Context, req core.DecryptMessage) error

	MessageCount(ctx context.Context) (uint64, error)
	MessageCountFor(ctx context.Context, address common.Address) (uint64, error)
	MessageMetadata(ctx context.Context, id uint64) (core.MessageMetadata, error)
	EncryptedMessage(ctx context.Context, id uint64) (common.Hash, error)
}

// Ledger is the full chat ledger surface
type Ledger interface {
	SessionLedger
	AccountRegistry
	ChatLedger
}

// BidVault is the commit-reveal ledger surface. The bidder is the
// transaction sender.
type BidVault interface {
	CommitBid(ctx context.Context, bidder common.Address, hash common.Hash) error
	RevealBid(ctx context.Context, bidder common.Address, amount *big.Int, salt [32]byte) error
	CancelCommit(ctx context.Context, bidder common.Address) error

	IsCommitted(ctx context.Context, bidder common.Address) (bool, error)
	CommitOf(ctx context.Context, bidder common.Address) (common.Hash, bool, error)
	HasRevealed(ctx context.Context, bidder common.Address) (bool, error)
}

// SessionRevoker is implemented by ledgers that can drop a session
type SessionRevoker interface {
	RevokeSession(ctx context.Context, address common.Address) error
}
