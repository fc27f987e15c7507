package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/encryptme/adapters/ledger/memledger"
	"github.com/layer-3/encryptme/adapters/oracle"
	"github.com/layer-3/encryptme/adapters/store"
	"github.com/layer-3/encryptme/adapters/wallet"
	"github.com/layer-3/encryptme/core"
	"github.com/layer-3/encryptme/ports"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// switchWallet lets a test change the connected account
type switchWallet struct {
	mu       sync.Mutex
	current  *wallet.KeyWallet
	declined bool
}

func (w *switchWallet) use(k *wallet.KeyWallet) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.current = k
}

func (w *switchWallet) decline(v bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.declined = v
}

func (w *switchWallet) get() (*wallet.KeyWallet, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current, w.declined
}

func (w *switchWallet) Connected() bool {
	k, _ := w.get()
	return k.Connected()
}

func (w *switchWallet) Address() common.Address {
	k, _ := w.get()
	return k.Address()
}

func (w *switchWallet) Connect(ctx context.Context) error {
	k, _ := w.get()
	return k.Connect(ctx)
}

func (w *switchWallet) SignMessage(ctx context.Context, data []byte) ([]byte, error) {
	k, declined := w.get()
	if declined {
		return nil, core.ErrSignatureDeclined
	}
	return k.SignMessage(ctx, data)
}

type harness struct {
	clock  *clock
	ledger *memledger.Ledger
	store  *store.MemoryStore
	wallet *switchWallet
	keys   []*wallet.KeyWallet

	sessions *SessionManager
	auth     *Authorizer
	chat     *ChatService
	bids     *BidService
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	ledger   func(*memledger.Ledger) ports.Ledger
	oracle   ports.Oracle
	onDemand bool
	start    time.Time
}

func withLedger(wrap func(*memledger.Ledger) ports.Ledger) harnessOption {
	return func(c *harnessConfig) { c.ledger = wrap }
}

func withOracle(o ports.Oracle) harnessOption {
	return func(c *harnessConfig) { c.oracle = o }
}

func startingAt(start time.Time) harnessOption {
	return func(c *harnessConfig) { c.start = start }
}

func disconnected() harnessOption {
	return func(c *harnessConfig) { c.onDemand = true }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	cfg := harnessConfig{
		ledger: func(l *memledger.Ledger) ports.Ledger { return l },
		oracle: oracle.HashOracle{},
		start:  epoch,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	h := &harness{clock: &clock{now: cfg.start}, store: store.NewMemoryStore()}
	h.ledger = memledger.New(memledger.WithClock(h.clock.Now))

	var walletOpts []wallet.Option
	if cfg.onDemand {
		walletOpts = append(walletOpts, wallet.OnDemand())
	}
	for i := 0; i < 3; i++ {
		k, err := wallet.Generate(walletOpts...)
		require.NoError(t, err)
		h.keys = append(h.keys, k)
	}
	h.wallet = &switchWallet{current: h.keys[0]}

	ledger := cfg.ledger(h.ledger)
	h.sessions = NewSessionManager(h.store, h.wallet, ledger, SessionOptions{
		ReadTimeout: 200 * time.Millisecond,
		Now:         h.clock.Now,
	})
	h.auth = NewAuthorizer(h.sessions, ledger, time.Hour)
	h.chat = NewChatService(h.auth, ledger, cfg.oracle)
	h.bids = NewBidService(h.auth, h.ledger)
	return h
}

// registered signs in and registers the current account, leaving it with
// a ledger session
func (h *harness) registered(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.chat.Register(ctx, common.Hash{0x01}))
	state, err := h.sessions.EnsureAuthenticated(ctx)
	require.NoError(t, err)
	require.Equal(t, core.AuthLocalAndLedger, state)
}

func (h *harness) nonce(t *testing.T) uint64 {
	t.Helper()
	account, err := h.ledger.AccountInfo(context.Background(), h.wallet.Address())
	require.NoError(t, err)
	return account.Nonce
}

// flakyLedger fails chosen calls before passing them through
type flakyLedger struct {
	ports.Ledger

	mu          sync.Mutex
	sendErrs    []error
	sendCalls   int
	sessionWait time.Duration
}

func (f *flakyLedger) SendMessage(ctx context.Context, req core.SendMessage) (uint64, error) {
	f.mu.Lock()
	f.sendCalls++
	var err error
	if len(f.sendErrs) > 0 {
		err, f.sendErrs = f.sendErrs[0], f.sendErrs[1:]
	}
	f.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return f.Ledger.SendMessage(ctx, req)
}

func (f *flakyLedger) HasValidSession(ctx context.Context, addr common.Address) (bool, error) {
	if f.sessionWait > 0 {
		select {
		case <-time.After(f.sessionWait):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return f.Ledger.HasValidSession(ctx, addr)
}

func (f *flakyLedger) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sendCalls
}
