// Package memledger is an in-process ledger with the same entry points and
// checks as the deployed chat and bid vault contracts. Every entry point is
// atomic, so it doubles as a devnet for the gateway and as a test double.
package memledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/layer-3/encryptme/core"
	"github.com/layer-3/encryptme/digest"
	"github.com/layer-3/encryptme/internal/eth"
	"github.com/layer-3/encryptme/ports"
	"github.com/layer-3/encryptme/vault"
)

type ledgerSession struct {
	message   string
	expiresAt uint64 // unix seconds
}

// Ledger implements ports.Ledger and ports.BidVault in memory
type Ledger struct {
	mu       sync.Mutex
	accounts map[common.Address]core.Account
	sessions map[common.Address]ledgerSession
	messages []core.Message
	grants   map[common.Address]map[common.Address]struct{} // owner -> grantees

	vault  *vault.Vault
	now    func() time.Time
	events ports.EventPublisher
	log    log.Logger
}

var (
	_ ports.Ledger   = (*Ledger)(nil)
	_ ports.BidVault = (*Ledger)(nil)
)

// Option configures a Ledger
type Option func(*Ledger)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithPublisher emits session and bid events to p
func WithPublisher(p ports.EventPublisher) Option {
	return func(l *Ledger) { l.events = p }
}

// New creates an empty ledger
func New(opts ...Option) *Ledger {
	l := &Ledger{
		accounts: make(map[common.Address]core.Account),
		sessions: make(map[common.Address]ledgerSession),
		grants:   make(map[common.Address]map[common.Address]struct{}),
		vault:    vault.New(),
		now:      time.Now,
		log:      log.New("module", "memledger"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) nowSeconds() uint64 {
	return uint64(l.now().Unix())
}

// CreateSession registers a wallet-signed session for req.From
func (l *Ledger) CreateSession(ctx context.Context, req core.SessionRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	if !l.accounts[req.From].Registered {
		l.mu.Unlock()
		return core.ErrNotRegistered
	}
	if !eth.Verify(req.From, []byte(req.Message), req.Signature) {
		l.mu.Unlock()
		return core.ErrInvalidSignature
	}
	if req.ExpiresAt <= l.nowSeconds() {
		l.mu.Unlock()
		return core.ErrSessionExpired
	}
	l.sessions[req.From] = ledgerSession{message: req.Message, expiresAt: req.ExpiresAt}
	l.mu.Unlock()

	l.log.Info("Session created", "address", req.From, "expires", time.Unix(int64(req.ExpiresAt), 0))
	l.publish(ctx, ports.TopicSession, ports.EventLedgerSession, req.From, common.Hash{})
	return nil
}

// HasValidSession reports whether address holds an unexpired session
func (l *Ledger) HasValidSession(ctx context.Context, address common.Address) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.validSession(address), nil
}

func (l *Ledger) validSession(address common.Address) bool {
	s, ok := l.sessions[address]
	return ok && s.expiresAt > l.nowSeconds()
}

// RevokeSession removes address's session
func (l *Ledger) RevokeSession(ctx context.Context, address common.Address) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	_, ok := l.sessions[address]
	delete(l.sessions, address)
	l.mu.Unlock()

	if !ok {
		return core.ErrNoLedgerSession
	}
	l.log.Info("Session revoked", "address", address)
	return nil
}

// AccountInfo returns the registration record and current nonce of address
func (l *Ledger) AccountInfo(ctx context.Context, address common.Address) (core.Account, error) {
	if err := ctx.Err(); err != nil {
		return core.Account{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.accounts[address], nil
}

// authorize checks the anti-replay fields and signer of a privileged action.
// Callers hold l.mu and advance the nonce only once the action applies.
func (l *Ledger) authorize(action string, args []digest.Arg, auth core.Authorization) (core.Account, error) {
	if l.nowSeconds() > auth.Deadline {
		return core.Account{}, core.ErrDeadlineExceeded
	}
	account := l.accounts[auth.From]
	if auth.Nonce != account.Nonce {
		return core.Account{}, fmt.Errorf("got %d, want %d: %w", auth.Nonce, account.Nonce, core.ErrStaleNonce)
	}
	hash, err := digest.Build(action, args, auth.Nonce, auth.Deadline)
	if err != nil {
		return core.Account{}, err
	}
	signer, err := eth.Recover(hash, auth.Signature)
	if err != nil || signer != auth.From {
		return core.Account{}, core.ErrInvalidSignature
	}
	return account, nil
}

// requireSession checks the preconditions of session-gated actions
func (l *Ledger) requireSession(account core.Account, address common.Address) error {
	if !account.Registered {
		return core.ErrNotRegistered
	}
	if !l.validSession(address) {
		return core.ErrNoLedgerSession
	}
	return nil
}

// RegisterUser records the sender's public key
func (l *Ledger) RegisterUser(ctx context.Context, req core.RegisterUser) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	account, err := l.authorize(digest.ActionRegisterUser, digest.RegisterArgs(req.PublicKey), req.Auth)
	if err != nil {
		return err
	}
	if account.Registered {
		return core.ErrAlreadyRegistered
	}

	account.Registered = true
	account.PublicKey = req.PublicKey
	account.Nonce++
	l.accounts[req.Auth.From] = account

	l.log.Info("User registered", "address", req.Auth.From)
	return nil
}

// GrantAccess lets req.Recipient read the sender's messages
func (l *Ledger) GrantAccess(ctx context.Context, req core.GrantAccess) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	account, err := l.authorize(digest.ActionGrantAccess, digest.GrantArgs(req.Recipient), req.Auth)
	if err != nil {
		return err
	}
	if err := l.requireSession(account, req.Auth.From); err != nil {
		return err
	}

	grantees, ok := l.grants[req.Auth.From]
	if !ok {
		grantees = make(map[common.Address]struct{})
		l.grants[req.Auth.From] = grantees
	}
	grantees[req.Recipient] = struct{}{}
	account.Nonce++
	l.accounts[req.Auth.From] = account

	l.log.Info("Access granted", "owner", req.Auth.From, "grantee", req.Recipient)
	return nil
}

// SendMessage stores a message and returns its id
func (l *Ledger) SendMessage(ctx context.Context, req core.SendMessage) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	args := digest.SendArgs(req.Recipient, req.Content, req.Proof)
	account, err := l.authorize(digest.ActionSendMessage, args, req.Auth)
	if err != nil {
		return 0, err
	}
	if err := l.requireSession(account, req.Auth.From); err != nil {
		return 0, err
	}

	id := uint64(len(l.messages))
	l.messages = append(l.messages, core.Message{
		ID:        id,
		Sender:    req.Auth.From,
		Recipient: req.Recipient,
		Content:   req.Content,
		Proof:     append([]byte(nil), req.Proof...),
		Timestamp: l.now().Truncate(time.Second),
	})
	account.Nonce++
	l.accounts[req.Auth.From] = account

	l.log.Info("Message stored", "id", id, "sender", req.Auth.From, "recipient", req.Recipient)
	return id, nil
}

// DecryptMessage marks a message decrypted. The recipient, the sender and
// any account the sender granted access may decrypt.
func (l *Ledger) DecryptMessage(ctx context.Context, req core.DecryptMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	account, err := l.authorize(digest.ActionDecryptMessage, digest.DecryptArgs(req.MessageID), req.Auth)
	if err != nil {
		return err
	}
	if err := l.requireSession(account, req.Auth.From); err != nil {
		return err
	}
	if req.MessageID >= uint64(len(l.messages)) {
		return fmt.Errorf("message %d: %w", req.MessageID, core.ErrUnknownMessage)
	}
	msg := &l.messages[req.MessageID]
	if !l.mayRead(*msg, req.Auth.From) {
		return core.ErrAccessDenied
	}

	msg.Decrypted = true
	account.Nonce++
	l.accounts[req.Auth.From] = account
	return nil
}

func (l *Ledger) mayRead(msg core.Message, reader common.Address) bool {
	if reader == msg.Recipient || reader == msg.Sender {
		return true
	}
	_, granted := l.grants[msg.Sender][reader]
	return granted
}

// MessageCount returns the number of stored messages
func (l *Ledger) MessageCount(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return uint64(len(l.messages)), nil
}

// MessageCountFor returns the number of messages addressed to address
func (l *Ledger) MessageCountFor(ctx context.Context, address common.Address) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	var n uint64
	for _, msg := range l.messages {
		if msg.Recipient == address {
			n++
		}
	}
	return n, nil
}

// MessageMetadata returns the public fields of message id
func (l *Ledger) MessageMetadata(ctx context.Context, id uint64) (core.MessageMetadata, error) {
	msg, err := l.message(ctx, id)
	if err != nil {
		return core.MessageMetadata{}, err
	}
	return core.MessageMetadata{Sender: msg.Sender, Timestamp: msg.Timestamp, Decrypted: msg.Decrypted}, nil
}

// EncryptedMessage returns the content handle of message id
func (l *Ledger) EncryptedMessage(ctx context.Context, id uint64) (common.Hash, error) {
	msg, err := l.message(ctx, id)
	if err != nil {
		return common.Hash{}, err
	}
	return msg.Content, nil
}

func (l *Ledger) message(ctx context.Context, id uint64) (core.Message, error) {
	if err := ctx.Err(); err != nil {
		return core.Message{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if id >= uint64(len(l.messages)) {
		return core.Message{}, fmt.Errorf("message %d: %w", id, core.ErrUnknownMessage)
	}
	return l.messages[id], nil
}

func (l *Ledger) publish(ctx context.Context, topic, kind string, address common.Address, hash common.Hash) {
	if l.events == nil {
		return
	}
	event := ports.Event{Kind: kind, Address: address.Hex(), At: l.now().UnixMilli()}
	if hash != (common.Hash{}) {
		event.Hash = hash.Hex()
	}
	if err := l.events.Publish(ctx, topic, event); err != nil {
		l.log.Warn("Failed to publish event", "kind", kind, "err", err)
	}
}
