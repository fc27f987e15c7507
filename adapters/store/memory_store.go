package store

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/layer-3/encryptme/core"
	"github.com/layer-3/encryptme/ports"
)

// MemoryStore is an in-memory implementation of the SessionStore interface
type MemoryStore struct {
	sessions map[common.Address]core.Session
	mu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[common.Address]core.Session),
	}
}

var _ ports.SessionStore = (*MemoryStore)(nil)

// Load returns a copy of the session stored for address
func (s *MemoryStore) Load(ctx context.Context, address common.Address) (*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[address]
	if !ok {
		return nil, nil
	}
	session.Signature = append([]byte(nil), session.Signature...)
	return &session, nil
}

// Save stores a copy of session under its address
func (s *MemoryStore) Save(ctx context.Context, session *core.Session) error {
	if err := session.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *session
	stored.Signature = append([]byte(nil), session.Signature...)
	s.sessions[session.Address] = stored
	return nil
}

// Clear removes the session stored for address
func (s *MemoryStore) Clear(ctx context.Context, address common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, address)
	return nil
}
