package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/layer-3/encryptme/core"
	"github.com/layer-3/encryptme/internal/await"
	"github.com/layer-3/encryptme/internal/eth"
	"github.com/layer-3/encryptme/ports"
)

const (
	DefaultSessionTTL  = 24 * time.Hour
	DefaultReadTimeout = 7 * time.Second
	DefaultAppName     = "EncryptMe Chat"

	isoMillis = "2006-01-02T15:04:05.000Z"
)

// SessionOptions tunes a SessionManager; zero values take the defaults
type SessionOptions struct {
	TTL         time.Duration
	ReadTimeout time.Duration
	AppName     string
	Now         func() time.Time
	Events      ports.EventPublisher
}

// SessionManager owns the local session of the connected account and its
// mirror on the ledger. It is the only writer of the session store.
type SessionManager struct {
	store  ports.SessionStore
	wallet ports.Wallet
	ledger ports.SessionLedger
	events ports.EventPublisher

	ttl         time.Duration
	readTimeout time.Duration
	appName     string
	now         func() time.Time

	mu     sync.Mutex
	active common.Address

	log log.Logger
}

// NewSessionManager creates a new session manager
func NewSessionManager(
	store ports.SessionStore,
	wallet ports.Wallet,
	ledger ports.SessionLedger,
	opts SessionOptions,
) *SessionManager {
	m := &SessionManager{
		store:       store,
		wallet:      wallet,
		ledger:      ledger,
		events:      opts.Events,
		ttl:         opts.TTL,
		readTimeout: opts.ReadTimeout,
		appName:     opts.AppName,
		now:         opts.Now,
		log:         log.New("module", "session"),
	}
	if m.ttl <= 0 {
		m.ttl = DefaultSessionTTL
	}
	if m.readTimeout <= 0 {
		m.readTimeout = DefaultReadTimeout
	}
	if m.appName == "" {
		m.appName = DefaultAppName
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// Wallet returns the wallet sessions are signed with
func (m *SessionManager) Wallet() ports.Wallet {
	return m.wallet
}

// ReadTimeout is the bound applied to every ledger read
func (m *SessionManager) ReadTimeout() time.Duration {
	return m.readTimeout
}

// Now returns the manager's clock reading
func (m *SessionManager) Now() time.Time {
	return m.now()
}

// account returns the connected address. When it differs from the account
// seen last, the previous account's session is cleared.
func (m *SessionManager) account(ctx context.Context) (common.Address, bool) {
	if !m.wallet.Connected() {
		return common.Address{}, false
	}
	addr := m.wallet.Address()

	m.mu.Lock()
	previous := m.active
	m.active = addr
	m.mu.Unlock()

	if previous != (common.Address{}) && previous != addr {
		if err := m.store.Clear(ctx, previous); err != nil {
			m.log.Warn("Failed to clear previous account session", "address", previous, "err", err)
		} else {
			m.log.Info("Account changed, previous session cleared", "previous", previous, "address", addr)
		}
	}
	return addr, true
}

// load returns the stored session of addr, dropping it when it fails
// verification or has expired. expired reports the latter case.
func (m *SessionManager) load(ctx context.Context, addr common.Address) (session *core.Session, expired bool) {
	s, err := m.store.Load(ctx, addr)
	if err != nil || s == nil {
		return nil, false
	}
	if s.Address != addr || !eth.Verify(addr, []byte(s.Message), s.Signature) {
		m.log.Warn("Discarding session that does not verify", "address", addr)
		m.clear(ctx, addr)
		return nil, false
	}
	if s.Expired(m.now()) {
		m.log.Info("Session expired", "address", addr, "expired", s.ExpiryTime())
		m.clear(ctx, addr)
		return nil, true
	}
	return s, false
}

func (m *SessionManager) clear(ctx context.Context, addr common.Address) {
	if err := m.store.Clear(ctx, addr); err != nil {
		m.log.Warn("Failed to clear session", "address", addr, "err", err)
	}
}

// Session returns the valid session of the connected account, or nil
func (m *SessionManager) Session(ctx context.Context) (*core.Session, error) {
	addr, ok := m.account(ctx)
	if !ok {
		return nil, nil
	}
	s, _ := m.load(ctx, addr)
	return s, nil
}

// State reports the authentication state of the connected account
func (m *SessionManager) State(ctx context.Context) core.AuthState {
	addr, ok := m.account(ctx)
	if !ok {
		return core.AuthNoSession
	}
	s, expired := m.load(ctx, addr)
	switch {
	case expired:
		return core.AuthExpired
	case s == nil:
		return core.AuthNoSession
	case s.HasLedgerSession():
		return core.AuthLocalAndLedger
	default:
		return core.AuthLocalOnly
	}
}

// IsAuthenticated reports whether the connected account holds a session
// whose signature verifies against its own message and which has not expired
func (m *SessionManager) IsAuthenticated(ctx context.Context) bool {
	s, err := m.Session(ctx)
	return err == nil && s != nil
}

// Message composes the text signed at sign-in
func (m *SessionManager) Message(addr common.Address, issued, expires time.Time) string {
	return strings.Join([]string{
		m.appName + " Authentication",
		"Address: " + addr.Hex(),
		"Issued At: " + issued.UTC().Format(isoMillis),
		"Expires At: " + expires.UTC().Format(isoMillis),
		"Purpose: Authorize message send/decrypt in app.",
	}, "\n")
}

// SignIn asks the wallet to sign a new session message and stores the
// session once the signature is obtained
func (m *SessionManager) SignIn(ctx context.Context) (*core.Session, error) {
	addr, ok := m.account(ctx)
	if !ok {
		return nil, core.ErrConnectionRequired
	}

	issued := m.now()
	expires := issued.Add(m.ttl)
	message := m.Message(addr, issued, expires)

	sig, err := m.wallet.SignMessage(ctx, []byte(message))
	if err != nil {
		if errors.Is(err, core.ErrSignatureDeclined) {
			m.log.Info("Sign-in declined", "address", addr)
			return nil, core.ErrSignatureDeclined
		}
		return nil, fmt.Errorf("sign session message: %w", err)
	}

	session := &core.Session{
		Address:   addr,
		Message:   message,
		Signature: sig,
		SignedAt:  issued.UnixMilli(),
		ExpiresAt: expires.UnixMilli(),
		State:     core.SessionLocalOnly,
	}
	if err := m.store.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	m.log.Info("Signed in", "address", addr, "expires", expires)
	m.publish(ctx, ports.EventSignedIn, addr)
	return session, nil
}

// CreateLedgerSession registers the local session on the ledger and waits
// for inclusion
func (m *SessionManager) CreateLedgerSession(ctx context.Context) error {
	addr, ok := m.account(ctx)
	if !ok {
		return core.ErrConnectionRequired
	}
	s, _ := m.load(ctx, addr)
	if s == nil {
		return core.ErrNoSession
	}

	err := m.ledger.CreateSession(ctx, core.SessionRequest{
		From:      addr,
		Message:   s.Message,
		Signature: s.Signature,
		ExpiresAt: s.ExpiresAtSeconds(),
	})
	switch {
	case err == nil:
	case errors.Is(err, core.ErrNotRegistered):
		return core.ErrNotRegistered
	case errors.Is(err, core.ErrSignatureDeclined):
		return core.ErrSignatureDeclined
	default:
		return fmt.Errorf("create ledger session: %w", err)
	}

	if err := m.store.Save(ctx, s.WithLedgerSession()); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	m.log.Info("Ledger session created", "address", addr, "expires", s.ExpiryTime())
	m.publish(ctx, ports.EventLedgerSession, addr)
	return nil
}

// CheckLedgerSession asks the ledger whether the connected account holds a
// session, bounded by the read timeout. A timeout or failed read counts as
// no session. The answer is mirrored into the local session.
func (m *SessionManager) CheckLedgerSession(ctx context.Context) bool {
	addr, ok := m.account(ctx)
	if !ok {
		return false
	}

	valid, err := await.WithTimeout(ctx, m.readTimeout, func(ctx context.Context) (bool, error) {
		return m.ledger.HasValidSession(ctx, addr)
	})
	if err != nil {
		m.log.Warn("Ledger session check failed", "address", addr, "err", err)
		valid = false
	}

	if s, _ := m.load(ctx, addr); s != nil && s.HasLedgerSession() != valid {
		next := s.WithoutLedgerSession()
		if valid {
			next = s.WithLedgerSession()
		}
		if err := m.store.Save(ctx, next); err != nil {
			m.log.Warn("Failed to mirror ledger session state", "address", addr, "err", err)
		}
	}
	return valid
}

// EnsureAuthenticated drives the connected account to the strongest session
// state obtainable. ErrNotRegistered from the ledger degrades to
// AuthLocalOnly with a nil error, so local-only actions stay available.
func (m *SessionManager) EnsureAuthenticated(ctx context.Context) (core.AuthState, error) {
	if !m.wallet.Connected() {
		if err := m.wallet.Connect(ctx); err != nil {
			m.log.Warn("Wallet connection request failed", "err", err)
		}
		return core.AuthNoSession, core.ErrConnectionRequired
	}

	session, err := m.Session(ctx)
	if err != nil {
		return core.AuthNoSession, err
	}
	if session == nil {
		if _, err := m.SignIn(ctx); err != nil {
			return core.AuthNoSession, err
		}
	}

	if m.CheckLedgerSession(ctx) {
		return core.AuthLocalAndLedger, nil
	}

	switch err := m.CreateLedgerSession(ctx); {
	case err == nil:
		return core.AuthLocalAndLedger, nil
	case errors.Is(err, core.ErrNotRegistered):
		m.log.Info("Account not registered, continuing with local session", "address", m.wallet.Address())
		return core.AuthLocalOnly, nil
	default:
		return core.AuthLocalOnly, err
	}
}

// SignOut clears the connected account's session
func (m *SessionManager) SignOut(ctx context.Context) error {
	addr, ok := m.account(ctx)
	if !ok {
		return nil
	}
	if err := m.store.Clear(ctx, addr); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	m.log.Info("Signed out", "address", addr)
	m.publish(ctx, ports.EventSignedOut, addr)
	return nil
}

func (m *SessionManager) publish(ctx context.Context, kind string, addr common.Address) {
	if m.events == nil {
		return
	}
	event := ports.Event{Kind: kind, Address: addr.Hex(), At: m.now().UnixMilli()}
	if err := m.events.Publish(ctx, ports.TopicSession, event); err != nil {
		m.log.Warn("Failed to publish event", "kind", kind, "err", err)
	}
}
