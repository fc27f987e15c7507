package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/encryptme/core"
	"github.com/layer-3/encryptme/ports"
)

var (
	alice = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	bob   = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
)

func testSession(addr common.Address) *core.Session {
	now := time.Now()
	return &core.Session{
		Address:   addr,
		Message:   "EncryptMe Chat Authentication\nAddress: " + addr.Hex(),
		Signature: make([]byte, 65),
		SignedAt:  now.UnixMilli(),
		ExpiresAt: now.Add(24 * time.Hour).UnixMilli(),
		State:     core.SessionLocalOnly,
	}
}

func exerciseStore(t *testing.T, s ports.SessionStore) {
	ctx := context.Background()

	got, err := s.Load(ctx, alice)
	require.NoError(t, err)
	assert.Nil(t, got)

	session := testSession(alice)
	require.NoError(t, s.Save(ctx, session))

	got, err = s.Load(ctx, alice)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, session.Address, got.Address)
	assert.Equal(t, session.Message, got.Message)
	assert.Equal(t, []byte(session.Signature), []byte(got.Signature))
	assert.Equal(t, session.ExpiresAt, got.ExpiresAt)
	assert.Equal(t, core.SessionLocalOnly, got.State)

	// keyed by account
	other, err := s.Load(ctx, bob)
	require.NoError(t, err)
	assert.Nil(t, other)

	require.NoError(t, s.Save(ctx, session.WithLedgerSession()))
	got, err = s.Load(ctx, alice)
	require.NoError(t, err)
	assert.True(t, got.HasLedgerSession())

	require.NoError(t, s.Clear(ctx, alice))
	got, err = s.Load(ctx, alice)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.Clear(ctx, alice), "clearing twice is fine")

	bad := testSession(bob)
	bad.ExpiresAt = bad.SignedAt
	assert.ErrorIs(t, s.Save(ctx, bad), core.ErrInvalidSession)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	session := testSession(alice)
	require.NoError(t, s.Save(ctx, session))

	session.Signature[0] = 0xff
	got, err := s.Load(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, byte(0), got.Signature[0])

	got.Message = "tampered"
	again, err := s.Load(ctx, alice)
	require.NoError(t, err)
	assert.NotEqual(t, "tampered", again.Message)
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestFileStoreCorruptReadsAsEmpty(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	path := filepath.Join(dir, strings.ToLower(alice.Hex())+".cbor")
	require.NoError(t, os.WriteFile(path, []byte("{not cbor"), 0o600))

	got, err := s.Load(context.Background(), alice)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFileStoreRejectsForeignRecord(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, testSession(bob)))
	// a record copied under another account's name is not trusted
	src := filepath.Join(dir, strings.ToLower(bob.Hex())+".cbor")
	dst := filepath.Join(dir, strings.ToLower(alice.Hex())+".cbor")
	raw, err := os.ReadFile(src)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(dst, raw, 0o600))

	got, err := s.Load(ctx, alice)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	defer client.Close()

	s := NewRedisStore(client, "encryptme:test:"+time.Now().Format("150405.000")+":")
	exerciseStore(t, s)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, KindMemory, "", "", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, KindFile, t.TempDir(), "", "")
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = Open(ctx, "etcd", "", "", "")
	assert.Error(t, err)
}
