// Package wallet provides signing wallets backed by a local private key.
package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"

	"github.com/layer-3/encryptme/core"
	"github.com/layer-3/encryptme/internal/eth"
	"github.com/layer-3/encryptme/ports"
)

// KeyWallet signs with an in-memory secp256k1 key
type KeyWallet struct {
	key     *ecdsa.PrivateKey
	address common.Address

	mu        sync.RWMutex
	connected bool
	approve   func(data []byte) bool

	log log.Logger
}

// Option configures a KeyWallet
type Option func(*KeyWallet)

// OnDemand makes the wallet start disconnected until Connect is called,
// the way a browser wallet waits for the user to approve the dapp.
func OnDemand() Option {
	return func(w *KeyWallet) { w.connected = false }
}

// WithApproval installs a prompt consulted before every signature. A false
// answer is reported as core.ErrSignatureDeclined.
func WithApproval(approve func(data []byte) bool) Option {
	return func(w *KeyWallet) { w.approve = approve }
}

// New creates a wallet for key
func New(key *ecdsa.PrivateKey, opts ...Option) *KeyWallet {
	w := &KeyWallet{
		key:       key,
		address:   crypto.PubkeyToAddress(key.PublicKey),
		connected: true,
		log:       log.New("module", "wallet"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// FromHex creates a wallet from a hex private key, with or without 0x prefix
func FromHex(hexKey string, opts ...Option) (*KeyWallet, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return New(key, opts...), nil
}

// Generate creates a wallet with a fresh random key
func Generate(opts ...Option) (*KeyWallet, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return New(key, opts...), nil
}

var _ ports.Wallet = (*KeyWallet)(nil)

// Connected reports whether the wallet accepts signing requests
func (w *KeyWallet) Connected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.connected
}

// Address returns the account of the key
func (w *KeyWallet) Address() common.Address {
	return w.address
}

// PrivateKey returns the signing key, for building ledger transactors
func (w *KeyWallet) PrivateKey() *ecdsa.PrivateKey {
	return w.key
}

// Connect enables signing
func (w *KeyWallet) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.connected {
		w.log.Info("Wallet connected", "address", w.address)
	}
	w.connected = true
	return nil
}

// Disconnect drops the connection, as a user would in the wallet UI
func (w *KeyWallet) Disconnect() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.connected = false
}

// SignMessage personal-signs data, asking the approval hook first
func (w *KeyWallet) SignMessage(ctx context.Context, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w.mu.RLock()
	connected, approve := w.connected, w.approve
	w.mu.RUnlock()

	if !connected {
		return nil, core.ErrConnectionRequired
	}
	if approve != nil && !approve(data) {
		return nil, core.ErrSignatureDeclined
	}
	return eth.SignText(w.key, data)
}
