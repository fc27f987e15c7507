package ports

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Wallet is the user's signing device.
// SignMessage personal-signs data (EIP-191) and returns a 65-byte signature.
// A user rejection is reported as core.ErrSignatureDeclined.
type Wallet interface {
	Connected() bool
	Address() common.Address
	// Connect requests a connection. It may return before the user has
	// completed it; callers re-check Connected.
	Connect(ctx context.Context) error
	SignMessage(ctx context.Context, data []byte) ([]byte, error)
}
