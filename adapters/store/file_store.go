package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/fxamacker/cbor/v2"

	"github.com/layer-3/encryptme/core"
	"github.com/layer-3/encryptme/ports"
)

// FileStore keeps one CBOR-encoded session per account in a directory,
// the device-local equivalent of a browser profile's storage.
type FileStore struct {
	dir string
	log log.Logger
}

// NewFileStore creates a file store rooted at dir, creating it if needed
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create session dir: %w", err)
	}
	return &FileStore{
		dir: dir,
		log: log.New("module", "store", "backend", "file"),
	}, nil
}

var _ ports.SessionStore = (*FileStore)(nil)

func (s *FileStore) path(address common.Address) string {
	return filepath.Join(s.dir, strings.ToLower(address.Hex())+".cbor")
}

// Load reads the session for address. Missing, unreadable or corrupt files read as no session.
func (s *FileStore) Load(ctx context.Context, address common.Address) (*core.Session, error) {
	raw, err := os.ReadFile(s.path(address))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("Session file unreadable", "address", address, "err", err)
		}
		return nil, nil
	}

	var session core.Session
	if err := cbor.Unmarshal(raw, &session); err != nil {
		s.log.Warn("Session file corrupt", "address", address, "err", err)
		return nil, nil
	}
	if session.Validate() != nil || session.Address != address {
		s.log.Warn("Session file invalid", "address", address)
		return nil, nil
	}
	return &session, nil
}

// Save atomically replaces the session file for session.Address
func (s *FileStore) Save(ctx context.Context, session *core.Session) error {
	if err := session.Validate(); err != nil {
		return err
	}
	payload, err := cbor.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".session-*")
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to save session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(session.Address)); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Clear removes the session file for address
func (s *FileStore) Clear(ctx context.Context, address common.Address) error {
	if err := os.Remove(s.path(address)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
