package main

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/encryptme/digest"
)

func TestParseArg(t *testing.T) {
	bob := common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")

	arg, err := parseArg("address:" + bob.Hex())
	require.NoError(t, err)
	assert.Equal(t, digest.Address(bob), arg)

	arg, err = parseArg("uint256:0x2a")
	require.NoError(t, err)
	assert.Equal(t, digest.KindUint256, arg.Kind)
	assert.Zero(t, big.NewInt(42).Cmp(arg.Value.(*big.Int)))

	arg, err = parseArg("bool:true")
	require.NoError(t, err)
	assert.Equal(t, digest.Bool(true), arg)

	for _, bad := range []string{"address", "address:0x12", "uint256:ten", "bool:yes", "string:hi"} {
		_, err := parseArg(bad)
		assert.Error(t, err, bad)
	}
}

func TestParsedArgsMatchHelpers(t *testing.T) {
	bob := common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
	arg, err := parseArg("address:" + bob.Hex())
	require.NoError(t, err)

	got, err := digest.Build(digest.ActionGrantAccess, []digest.Arg{arg}, 2, 1_700_000_000)
	require.NoError(t, err)
	want, err := digest.Build(digest.ActionGrantAccess, digest.GrantArgs(bob), 2, 1_700_000_000)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
