package wallet

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/encryptme/core"
	"github.com/layer-3/encryptme/internal/eth"
)

// anvil account #1
const testKey = "0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"

func TestFromHex(t *testing.T) {
	w, err := FromHex(testKey)
	require.NoError(t, err)
	assert.Equal(t, "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", w.Address().Hex())
	assert.True(t, w.Connected())

	_, err = FromHex("0xzz")
	assert.Error(t, err)
}

func TestSignMessageVerifies(t *testing.T) {
	w, err := Generate()
	require.NoError(t, err)

	msg := []byte("EncryptMe Chat Authentication")
	sig, err := w.SignMessage(context.Background(), msg)
	require.NoError(t, err)
	assert.Len(t, sig, 65)
	assert.True(t, eth.Verify(w.Address(), msg, sig))

	digest := crypto.Keccak256Hash([]byte("action"))
	sig, err = w.SignMessage(context.Background(), digest.Bytes())
	require.NoError(t, err)
	signer, err := eth.Recover(digest, sig)
	require.NoError(t, err)
	assert.Equal(t, w.Address(), signer)
}

func TestOnDemandConnect(t *testing.T) {
	w, err := Generate(OnDemand())
	require.NoError(t, err)
	assert.False(t, w.Connected())

	_, err = w.SignMessage(context.Background(), []byte("x"))
	assert.ErrorIs(t, err, core.ErrConnectionRequired)

	require.NoError(t, w.Connect(context.Background()))
	assert.True(t, w.Connected())

	w.Disconnect()
	assert.False(t, w.Connected())
}

func TestApprovalDeclined(t *testing.T) {
	w, err := Generate(WithApproval(func([]byte) bool { return false }))
	require.NoError(t, err)

	_, err = w.SignMessage(context.Background(), []byte("x"))
	assert.ErrorIs(t, err, core.ErrSignatureDeclined)
}
