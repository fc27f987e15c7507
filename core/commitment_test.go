package core

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitmentLifecycle(t *testing.T) {
	hash := common.HexToHash("0x01")

	var c Commitment
	assert.False(t, c.Active())
	assert.False(t, c.Revealed())

	c, err := c.Commit(hash)
	require.NoError(t, err)
	assert.True(t, c.Active())

	_, err = c.Commit(hash)
	assert.ErrorIs(t, err, ErrAlreadyCommitted)

	_, err = c.Reveal(common.HexToHash("0x02"))
	assert.ErrorIs(t, err, ErrHashMismatch)

	c, err = c.Reveal(hash)
	require.NoError(t, err)
	assert.True(t, c.Revealed())
	assert.False(t, c.Active())
	assert.Equal(t, hash, c.Hash)

	_, err = c.Reveal(hash)
	assert.ErrorIs(t, err, ErrNoActiveCommitment)
	_, err = c.Cancel()
	assert.ErrorIs(t, err, ErrNoActiveCommitment)

	// a terminal commitment starts a fresh cycle
	c, err = c.Commit(common.HexToHash("0x03"))
	require.NoError(t, err)
	assert.True(t, c.Active())
	assert.False(t, c.Revealed())
}

func TestCommitmentCancel(t *testing.T) {
	c, err := Commitment{}.Commit(common.HexToHash("0x01"))
	require.NoError(t, err)

	c, err = c.Cancel()
	require.NoError(t, err)
	assert.Equal(t, CommitCancelled, c.State)
	assert.Equal(t, common.Hash{}, c.Hash)
	assert.False(t, c.Active())
	assert.False(t, c.Revealed())

	_, err = c.Commit(common.HexToHash("0x02"))
	assert.NoError(t, err)
}

func TestSessionValidate(t *testing.T) {
	s := &Session{
		Address:   common.HexToAddress("0x1"),
		Message:   "hello",
		Signature: []byte{1},
		SignedAt:  1,
		ExpiresAt: 2,
		State:     SessionLocalOnly,
	}
	require.NoError(t, s.Validate())

	bad := *s
	bad.ExpiresAt = bad.SignedAt
	assert.ErrorIs(t, bad.Validate(), ErrInvalidSession)

	bad = *s
	bad.State = "bogus"
	assert.ErrorIs(t, bad.Validate(), ErrInvalidSession)

	ledger := s.WithLedgerSession()
	assert.True(t, ledger.HasLedgerSession())
	assert.False(t, s.HasLedgerSession())
	assert.False(t, ledger.WithoutLedgerSession().HasLedgerSession())
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(&ActionError{Action: "x", Step: StepSubmit, Err: ErrStaleNonce}))
	assert.True(t, IsTransient(ErrDeadlineExceeded))
	assert.True(t, IsTransient(ErrTimeout))
	assert.False(t, IsTransient(ErrSignatureDeclined))
	assert.False(t, IsTransient(ErrHashMismatch))
}
