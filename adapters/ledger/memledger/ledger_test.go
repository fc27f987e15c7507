package memledger

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/encryptme/adapters/wallet"
	"github.com/layer-3/encryptme/core"
	"github.com/layer-3/encryptme/digest"
	"github.com/layer-3/encryptme/ports"
)

var epoch = time.Unix(1_700_000_000, 0)

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

func setup(t *testing.T) (*Ledger, *clock) {
	t.Helper()
	c := &clock{now: epoch}
	return New(WithClock(c.Now)), c
}

func newWallet(t *testing.T) *wallet.KeyWallet {
	t.Helper()
	w, err := wallet.Generate()
	require.NoError(t, err)
	return w
}

func authorize(t *testing.T, w *wallet.KeyWallet, action string, args []digest.Arg, nonce, deadline uint64) core.Authorization {
	t.Helper()
	hash, err := digest.Build(action, args, nonce, deadline)
	require.NoError(t, err)
	sig, err := w.SignMessage(context.Background(), hash.Bytes())
	require.NoError(t, err)
	return core.Authorization{From: w.Address(), Nonce: nonce, Deadline: deadline, Signature: sig}
}

func deadline() uint64 { return uint64(epoch.Add(time.Hour).Unix()) }

func register(t *testing.T, l *Ledger, w *wallet.KeyWallet) {
	t.Helper()
	ctx := context.Background()
	account, err := l.AccountInfo(ctx, w.Address())
	require.NoError(t, err)
	key := crypto.Keccak256Hash(w.Address().Bytes())
	auth := authorize(t, w, digest.ActionRegisterUser, digest.RegisterArgs(key), account.Nonce, deadline())
	require.NoError(t, l.RegisterUser(ctx, core.RegisterUser{PublicKey: key, Auth: auth}))
}

func openSession(t *testing.T, l *Ledger, w *wallet.KeyWallet) {
	t.Helper()
	msg := "EncryptMe Chat Authentication\nAddress: " + w.Address().Hex()
	sig, err := w.SignMessage(context.Background(), []byte(msg))
	require.NoError(t, err)
	require.NoError(t, l.CreateSession(context.Background(), core.SessionRequest{
		From:      w.Address(),
		Message:   msg,
		Signature: sig,
		ExpiresAt: uint64(epoch.Add(24 * time.Hour).Unix()),
	}))
}

func TestRegisterAdvancesNonce(t *testing.T) {
	l, _ := setup(t)
	w := newWallet(t)
	register(t, l, w)

	account, err := l.AccountInfo(context.Background(), w.Address())
	require.NoError(t, err)
	assert.True(t, account.Registered)
	assert.Equal(t, uint64(1), account.Nonce)
	assert.Equal(t, crypto.Keccak256Hash(w.Address().Bytes()), account.PublicKey)

	key := common.Hash{1}
	auth := authorize(t, w, digest.ActionRegisterUser, digest.RegisterArgs(key), 1, deadline())
	assert.ErrorIs(t, l.RegisterUser(context.Background(), core.RegisterUser{PublicKey: key, Auth: auth}), core.ErrAlreadyRegistered)

	account, err = l.AccountInfo(context.Background(), w.Address())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), account.Nonce, "rejected actions leave the nonce alone")
}

func TestReplayIsStale(t *testing.T) {
	l, _ := setup(t)
	ctx := context.Background()
	alice, bob := newWallet(t), newWallet(t)
	register(t, l, alice)
	openSession(t, l, alice)

	auth := authorize(t, alice, digest.ActionGrantAccess, digest.GrantArgs(bob.Address()), 1, deadline())
	req := core.GrantAccess{Recipient: bob.Address(), Auth: auth}
	require.NoError(t, l.GrantAccess(ctx, req))

	account, err := l.AccountInfo(ctx, alice.Address())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), account.Nonce)

	assert.ErrorIs(t, l.GrantAccess(ctx, req), core.ErrStaleNonce)
}

func TestDeadlineExceeded(t *testing.T) {
	l, c := setup(t)
	w := newWallet(t)
	key := common.Hash{7}
	auth := authorize(t, w, digest.ActionRegisterUser, digest.RegisterArgs(key), 0, uint64(epoch.Unix()))

	c.Advance(time.Second)
	err := l.RegisterUser(context.Background(), core.RegisterUser{PublicKey: key, Auth: auth})
	assert.ErrorIs(t, err, core.ErrDeadlineExceeded)
}

func TestWrongSigner(t *testing.T) {
	l, _ := setup(t)
	alice, mallory := newWallet(t), newWallet(t)
	key := common.Hash{7}

	auth := authorize(t, mallory, digest.ActionRegisterUser, digest.RegisterArgs(key), 0, deadline())
	auth.From = alice.Address()
	err := l.RegisterUser(context.Background(), core.RegisterUser{PublicKey: key, Auth: auth})
	assert.ErrorIs(t, err, core.ErrInvalidSignature)

	// signature over different arguments
	auth = authorize(t, alice, digest.ActionRegisterUser, digest.RegisterArgs(key), 0, deadline())
	err = l.RegisterUser(context.Background(), core.RegisterUser{PublicKey: common.Hash{8}, Auth: auth})
	assert.ErrorIs(t, err, core.ErrInvalidSignature)
}

func TestSessionRequiresRegistration(t *testing.T) {
	l, _ := setup(t)
	ctx := context.Background()
	w := newWallet(t)

	msg := "EncryptMe Chat Authentication"
	sig, err := w.SignMessage(ctx, []byte(msg))
	require.NoError(t, err)
	req := core.SessionRequest{From: w.Address(), Message: msg, Signature: sig, ExpiresAt: deadline()}

	assert.ErrorIs(t, l.CreateSession(ctx, req), core.ErrNotRegistered)

	register(t, l, w)
	bad := req
	bad.Message = "EncryptMe Chat Authentication!"
	assert.ErrorIs(t, l.CreateSession(ctx, bad), core.ErrInvalidSignature)

	past := req
	past.ExpiresAt = uint64(epoch.Unix())
	assert.ErrorIs(t, l.CreateSession(ctx, past), core.ErrSessionExpired)

	require.NoError(t, l.CreateSession(ctx, req))
	ok, err := l.HasValidSession(ctx, w.Address())
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, l.RevokeSession(ctx, w.Address()))
	ok, err = l.HasValidSession(ctx, w.Address())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, l.RevokeSession(ctx, w.Address()), core.ErrNoLedgerSession)
}

func TestSessionExpires(t *testing.T) {
	l, c := setup(t)
	w := newWallet(t)
	register(t, l, w)
	openSession(t, l, w)

	c.Advance(24 * time.Hour)
	ok, err := l.HasValidSession(context.Background(), w.Address())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSendRequiresSession(t *testing.T) {
	l, _ := setup(t)
	ctx := context.Background()
	alice, bob := newWallet(t), newWallet(t)

	content := crypto.Keccak256Hash([]byte("hi"))
	send := func(nonce uint64) error {
		auth := authorize(t, alice, digest.ActionSendMessage, digest.SendArgs(bob.Address(), content, nil), nonce, deadline())
		_, err := l.SendMessage(ctx, core.SendMessage{Recipient: bob.Address(), Content: content, Auth: auth})
		return err
	}

	assert.ErrorIs(t, send(0), core.ErrNotRegistered)
	register(t, l, alice)
	assert.ErrorIs(t, send(1), core.ErrNoLedgerSession)
	openSession(t, l, alice)
	assert.NoError(t, send(1))
}

func TestMessagesAndDecryptAccess(t *testing.T) {
	l, _ := setup(t)
	ctx := context.Background()
	alice, bob, carol := newWallet(t), newWallet(t), newWallet(t)
	for _, w := range []*wallet.KeyWallet{alice, bob, carol} {
		register(t, l, w)
		openSession(t, l, w)
	}

	content := crypto.Keccak256Hash([]byte("hi"))
	proof := []byte{0xde, 0xad}
	auth := authorize(t, alice, digest.ActionSendMessage, digest.SendArgs(bob.Address(), content, proof), 1, deadline())
	id, err := l.SendMessage(ctx, core.SendMessage{Recipient: bob.Address(), Content: content, Proof: proof, Auth: auth})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id)

	count, err := l.MessageCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
	count, err = l.MessageCountFor(ctx, bob.Address())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	handle, err := l.EncryptedMessage(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, content, handle)

	decrypt := func(w *wallet.KeyWallet, id, nonce uint64) error {
		auth := authorize(t, w, digest.ActionDecryptMessage, digest.DecryptArgs(id), nonce, deadline())
		return l.DecryptMessage(ctx, core.DecryptMessage{MessageID: id, Auth: auth})
	}

	assert.ErrorIs(t, decrypt(carol, id, 1), core.ErrAccessDenied)
	assert.ErrorIs(t, decrypt(bob, 5, 1), core.ErrUnknownMessage)

	grant := authorize(t, alice, digest.ActionGrantAccess, digest.GrantArgs(carol.Address()), 2, deadline())
	require.NoError(t, l.GrantAccess(ctx, core.GrantAccess{Recipient: carol.Address(), Auth: grant}))
	assert.NoError(t, decrypt(carol, id, 1))

	meta, err := l.MessageMetadata(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, alice.Address(), meta.Sender)
	assert.True(t, meta.Decrypted)
	assert.Equal(t, epoch, meta.Timestamp)

	_, err = l.MessageMetadata(ctx, 9)
	assert.ErrorIs(t, err, core.ErrUnknownMessage)
}

func TestConcurrentSameNonce(t *testing.T) {
	l, _ := setup(t)
	ctx := context.Background()
	alice, bob := newWallet(t), newWallet(t)
	register(t, l, alice)
	openSession(t, l, alice)

	const n = 8
	reqs := make([]core.SendMessage, n)
	for i := range reqs {
		content := crypto.Keccak256Hash([]byte{byte(i)})
		reqs[i] = core.SendMessage{
			Recipient: bob.Address(),
			Content:   content,
			Auth:      authorize(t, alice, digest.ActionSendMessage, digest.SendArgs(bob.Address(), content, nil), 1, deadline()),
		}
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for _, req := range reqs {
		wg.Add(1)
		go func(req core.SendMessage) {
			defer wg.Done()
			_, err := l.SendMessage(ctx, req)
			errs <- err
		}(req)
	}
	wg.Wait()
	close(errs)

	var ok int
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, core.ErrStaleNonce)
	}
	assert.Equal(t, 1, ok)

	account, err := l.AccountInfo(ctx, alice.Address())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), account.Nonce)
}

type recorder struct {
	mu     sync.Mutex
	events []ports.Event
}

func (r *recorder) Publish(_ context.Context, _ string, e ports.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func TestBidVaultEvents(t *testing.T) {
	rec := &recorder{}
	l := New(WithPublisher(rec))
	ctx := context.Background()
	bidder := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")

	salt, err := digest.SaltFromString("pepper")
	require.NoError(t, err)
	hash, err := digest.BidHash(big.NewInt(42), salt)
	require.NoError(t, err)

	require.NoError(t, l.CommitBid(ctx, bidder, hash))
	committed, err := l.IsCommitted(ctx, bidder)
	require.NoError(t, err)
	assert.True(t, committed)

	assert.ErrorIs(t, l.RevealBid(ctx, bidder, big.NewInt(41), salt), core.ErrHashMismatch)
	require.NoError(t, l.RevealBid(ctx, bidder, big.NewInt(42), salt))

	got, revealed, err := l.CommitOf(ctx, bidder)
	require.NoError(t, err)
	assert.Equal(t, hash, got)
	assert.True(t, revealed)

	assert.ErrorIs(t, l.CancelCommit(ctx, bidder), core.ErrNoActiveCommitment)

	require.Len(t, rec.events, 2)
	assert.Equal(t, ports.EventBidCommitted, rec.events[0].Kind)
	assert.Equal(t, ports.EventBidRevealed, rec.events[1].Kind)
	assert.Equal(t, hash.Hex(), rec.events[1].Hash)
}
