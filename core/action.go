package core

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Account is the ledger's registration and nonce record for an address
type Account struct {
	Registered bool        `json:"registered"`
	PublicKey  common.Hash `json:"publicKey"`
	Nonce      uint64      `json:"nonce"`
}

// Authorization carries the anti-replay fields and signature of a privileged action
type Authorization struct {
	From      common.Address `json:"from"`
	Nonce     uint64         `json:"nonce"`
	Deadline  uint64         `json:"deadline"` // unix seconds
	Signature []byte         `json:"signature"`
}

// RegisterUser registers the sender's identity key
type RegisterUser struct {
	PublicKey common.Hash
	Auth      Authorization
}

// GrantAccess lets Recipient read the sender's messages
type GrantAccess struct {
	Recipient common.Address
	Auth      Authorization
}

// SendMessage stores an encrypted message handle for Recipient
type SendMessage struct {
	Recipient common.Address
	Content   common.Hash
	Proof     []byte
	Auth      Authorization
}

// DecryptMessage marks a message as decrypted by the sender of the request
type DecryptMessage struct {
	MessageID uint64
	Auth      Authorization
}

// Message is a stored chat message
type Message struct {
	ID        uint64         `json:"id"`
	Sender    common.Address `json:"sender"`
	Recipient common.Address `json:"recipient"`
	Content   common.Hash    `json:"content"`
	Proof     []byte         `json:"proof,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Decrypted bool           `json:"decrypted"`
}

// MessageMetadata is the public view of a message that does not reveal content
type MessageMetadata struct {
	Sender    common.Address `json:"sender"`
	Timestamp time.Time      `json:"timestamp"`
	Decrypted bool           `json:"decrypted"`
}
