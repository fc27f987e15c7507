package digest

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Action names bound into digests. They match the ledger entry point names.
const (
	ActionRegisterUser   = "registerUser"
	ActionGrantAccess    = "grantAccess"
	ActionSendMessage    = "sendMessage"
	ActionDecryptMessage = "decryptMessage"
)

// RegisterArgs is the argument schema of registerUser
func RegisterArgs(publicKey common.Hash) []Arg {
	return []Arg{Bytes32(publicKey)}
}

// GrantArgs is the argument schema of grantAccess
func GrantArgs(recipient common.Address) []Arg {
	return []Arg{Address(recipient)}
}

// SendArgs is the argument schema of sendMessage. The proof is variable
// length, so it is bound through its keccak256 hash.
func SendArgs(recipient common.Address, content common.Hash, proof []byte) []Arg {
	return []Arg{Address(recipient), Bytes32(content), Bytes32(crypto.Keccak256Hash(proof))}
}

// DecryptArgs is the argument schema of decryptMessage
func DecryptArgs(messageID uint64) []Arg {
	return []Arg{Uint64(messageID)}
}
