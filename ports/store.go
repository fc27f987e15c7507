package ports

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/layer-3/encryptme/core"
)

// SessionStore persists local sessions keyed by account.
// Load returns nil, nil when no readable session exists; corrupt records
// are treated as absent.
type SessionStore interface {
	Load(ctx context.Context, address common.Address) (*core.Session, error)
	Save(ctx context.Context, session *core.Session) error
	Clear(ctx context.Context, address common.Address) error
}
