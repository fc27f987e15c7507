// Package chainledger drives the deployed chat and bid vault contracts
// through go-ethereum contract bindings.
package chainledger

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"

	"github.com/layer-3/encryptme/core"
	"github.com/layer-3/encryptme/ports"
)

// Backend is what the ledger needs from a node connection
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Config locates the contracts
type Config struct {
	ChainID      *big.Int
	ChatContract common.Address
	// VaultContract may be zero when the bid vault is not deployed
	VaultContract common.Address
}

// Ledger implements ports.Ledger and ports.BidVault against contracts.
// Writes are sent from the account of key.
type Ledger struct {
	backend Backend
	chat    *bind.BoundContract
	vault   *bind.BoundContract

	key     *ecdsa.PrivateKey
	from    common.Address
	chainID *big.Int

	log log.Logger
}

var (
	_ ports.Ledger   = (*Ledger)(nil)
	_ ports.BidVault = (*Ledger)(nil)
)

var (
	chatABI  = mustParse(ChatABI)
	vaultABI = mustParse(VaultABI)
)

func mustParse(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return parsed
}

// Dial connects to rpcURL and binds the contracts. A nil cfg.ChainID is
// read from the node.
func Dial(ctx context.Context, rpcURL string, cfg Config, key *ecdsa.PrivateKey) (*Ledger, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	if cfg.ChainID == nil {
		id, err := client.ChainID(ctx)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("read chain id: %w", err)
		}
		cfg.ChainID = id
	}
	l, err := New(client, cfg, key)
	if err != nil {
		client.Close()
		return nil, err
	}
	return l, nil
}

// New binds the contracts on backend
func New(backend Backend, cfg Config, key *ecdsa.PrivateKey) (*Ledger, error) {
	if cfg.ChatContract == (common.Address{}) {
		return nil, fmt.Errorf("chat contract address is required")
	}
	if cfg.ChainID == nil {
		return nil, fmt.Errorf("chain id is required")
	}
	l := &Ledger{
		backend: backend,
		chat:    bind.NewBoundContract(cfg.ChatContract, chatABI, backend, backend, backend),
		key:     key,
		chainID: cfg.ChainID,
		log:     log.New("module", "chainledger", "chat", cfg.ChatContract),
	}
	if key != nil {
		l.from = crypto.PubkeyToAddress(key.PublicKey)
	}
	if cfg.VaultContract != (common.Address{}) {
		l.vault = bind.NewBoundContract(cfg.VaultContract, vaultABI, backend, backend, backend)
	}
	return l, nil
}

// Close releases the backend connection when the backend holds one
func (l *Ledger) Close() {
	if c, ok := l.backend.(interface{ Close() }); ok {
		c.Close()
	}
}

// ChainID returns the chain transactions are signed for
func (l *Ledger) ChainID() *big.Int {
	return new(big.Int).Set(l.chainID)
}

func (l *Ledger) call(ctx context.Context, c *bind.BoundContract, method string, params ...interface{}) ([]interface{}, error) {
	if c == nil {
		return nil, fmt.Errorf("%s: contract not configured", method)
	}
	var out []interface{}
	if err := c.Call(&bind.CallOpts{Context: ctx}, &out, method, params...); err != nil {
		return nil, fmt.Errorf("%s: %w", method, classify(err))
	}
	return out, nil
}

// transact sends method and waits for it to be mined
func (l *Ledger) transact(ctx context.Context, c *bind.BoundContract, sender common.Address, method string, params ...interface{}) (*types.Receipt, error) {
	if c == nil {
		return nil, fmt.Errorf("%s: contract not configured", method)
	}
	if l.key == nil {
		return nil, fmt.Errorf("%s: no signing key", method)
	}
	if sender != l.from {
		return nil, fmt.Errorf("%s from %s: %w", method, sender, ErrWrongSender)
	}

	opts, err := bind.NewKeyedTransactorWithChainID(l.key, l.chainID)
	if err != nil {
		return nil, fmt.Errorf("create transactor: %w", err)
	}
	opts.Context = ctx

	tx, err := c.Transact(opts, method, params...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, classify(err))
	}
	l.log.Debug("Transaction sent", "method", method, "tx", tx.Hash())

	receipt, err := bind.WaitMined(ctx, l.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("%s: wait for %s: %w", method, tx.Hash(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%s: transaction %s reverted", method, tx.Hash())
	}
	l.log.Info("Transaction mined", "method", method, "tx", tx.Hash(), "block", receipt.BlockNumber)
	return receipt, nil
}

// CreateSession mirrors a signed session on the chat contract
func (l *Ledger) CreateSession(ctx context.Context, req core.SessionRequest) error {
	_, err := l.transact(ctx, l.chat, req.From, "createSession",
		req.Message, req.Signature, new(big.Int).SetUint64(req.ExpiresAt))
	return err
}

// HasValidSession reports whether the contract holds an unexpired session for address
func (l *Ledger) HasValidSession(ctx context.Context, address common.Address) (bool, error) {
	out, err := l.call(ctx, l.chat, "hasValidSession", address)
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

// AccountInfo reads the registration flag and nonce of address
func (l *Ledger) AccountInfo(ctx context.Context, address common.Address) (core.Account, error) {
	out, err := l.call(ctx, l.chat, "users", address)
	if err != nil {
		return core.Account{}, err
	}
	nonce := *abi.ConvertType(out[2], new(*big.Int)).(**big.Int)
	if !nonce.IsUint64() {
		return core.Account{}, fmt.Errorf("nonce %s out of range", nonce)
	}
	return core.Account{
		Registered: *abi.ConvertType(out[0], new(bool)).(*bool),
		PublicKey:  *abi.ConvertType(out[1], new([32]byte)).(*[32]byte),
		Nonce:      nonce.Uint64(),
	}, nil
}

// RegisterUser registers the sender with its public key commitment
func (l *Ledger) RegisterUser(ctx context.Context, req core.RegisterUser) error {
	a := req.Auth
	_, err := l.transact(ctx, l.chat, a.From, "registerUser",
		[32]byte(req.PublicKey), u256(a.Nonce), u256(a.Deadline), a.Signature)
	return err
}

// GrantAccess lets the recipient read the sender's messages
func (l *Ledger) GrantAccess(ctx context.Context, req core.GrantAccess) error {
	a := req.Auth
	_, err := l.transact(ctx, l.chat, a.From, "grantAccess",
		req.Recipient, u256(a.Nonce), u256(a.Deadline), a.Signature)
	return err
}

// SendMessage returns the id of the stored message, read as the message
// count after inclusion minus one.
func (l *Ledger) SendMessage(ctx context.Context, req core.SendMessage) (uint64, error) {
	a := req.Auth
	proof := req.Proof
	if proof == nil {
		proof = []byte{}
	}
	_, err := l.transact(ctx, l.chat, a.From, "sendMessage",
		req.Recipient, [32]byte(req.Content), proof, u256(a.Nonce), u256(a.Deadline), a.Signature)
	if err != nil {
		return 0, err
	}
	count, err := l.MessageCount(ctx)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, fmt.Errorf("sendMessage: message count is zero after inclusion")
	}
	return count - 1, nil
}

// DecryptMessage records an authorized read of a message
func (l *Ledger) DecryptMessage(ctx context.Context, req core.DecryptMessage) error {
	a := req.Auth
	_, err := l.transact(ctx, l.chat, a.From, "decryptMessage",
		u256(req.MessageID), u256(a.Nonce), u256(a.Deadline), a.Signature)
	return err
}

// MessageCount returns the number of stored messages
func (l *Ledger) MessageCount(ctx context.Context) (uint64, error) {
	out, err := l.call(ctx, l.chat, "getMessageCount")
	if err != nil {
		return 0, err
	}
	return toUint64(out[0])
}

// MessageCountFor returns the number of messages sent to address
func (l *Ledger) MessageCountFor(ctx context.Context, address common.Address) (uint64, error) {
	out, err := l.call(ctx, l.chat, "getMessageCountFor", address)
	if err != nil {
		return 0, err
	}
	return toUint64(out[0])
}

// MessageMetadata returns the public fields of a message
func (l *Ledger) MessageMetadata(ctx context.Context, id uint64) (core.MessageMetadata, error) {
	out, err := l.call(ctx, l.chat, "getMessageMetadata", u256(id))
	if err != nil {
		return core.MessageMetadata{}, err
	}
	ts, err := toUint64(out[1])
	if err != nil {
		return core.MessageMetadata{}, err
	}
	return core.MessageMetadata{
		Sender:    *abi.ConvertType(out[0], new(common.Address)).(*common.Address),
		Timestamp: time.Unix(int64(ts), 0),
		Decrypted: *abi.ConvertType(out[2], new(bool)).(*bool),
	}, nil
}

// EncryptedMessage returns the content handle of a message
func (l *Ledger) EncryptedMessage(ctx context.Context, id uint64) (common.Hash, error) {
	out, err := l.call(ctx, l.chat, "getEncryptedMessage", u256(id))
	if err != nil {
		return common.Hash{}, err
	}
	return *abi.ConvertType(out[0], new([32]byte)).(*[32]byte), nil
}

// CommitBid submits a sealed bid hash to the vault
func (l *Ledger) CommitBid(ctx context.Context, bidder common.Address, hash common.Hash) error {
	_, err := l.transact(ctx, l.vault, bidder, "commitBid", [32]byte(hash))
	return err
}

// RevealBid opens the sender's commitment
func (l *Ledger) RevealBid(ctx context.Context, bidder common.Address, amount *big.Int, salt [32]byte) error {
	_, err := l.transact(ctx, l.vault, bidder, "revealBid", amount, salt)
	return err
}

// CancelCommit withdraws the sender's active commitment
func (l *Ledger) CancelCommit(ctx context.Context, bidder common.Address) error {
	_, err := l.transact(ctx, l.vault, bidder, "cancelCommit")
	return err
}

// IsCommitted reports whether bidder holds an active commitment
func (l *Ledger) IsCommitted(ctx context.Context, bidder common.Address) (bool, error) {
	out, err := l.call(ctx, l.vault, "isCommitted", bidder)
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

// CommitOf returns bidder's stored hash and whether it was revealed
func (l *Ledger) CommitOf(ctx context.Context, bidder common.Address) (common.Hash, bool, error) {
	out, err := l.call(ctx, l.vault, "commitOf", bidder)
	if err != nil {
		return common.Hash{}, false, err
	}
	return *abi.ConvertType(out[0], new([32]byte)).(*[32]byte), *abi.ConvertType(out[1], new(bool)).(*bool), nil
}

// HasRevealed reports whether bidder revealed its latest commitment
func (l *Ledger) HasRevealed(ctx context.Context, bidder common.Address) (bool, error) {
	out, err := l.call(ctx, l.vault, "hasRevealed", bidder)
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

func u256(v uint64) *big.Int {
	return new(big.Int).SetUint64(v)
}

func toUint64(v interface{}) (uint64, error) {
	n := *abi.ConvertType(v, new(*big.Int)).(**big.Int)
	if n == nil || !n.IsUint64() {
		return 0, fmt.Errorf("value %v out of uint64 range", n)
	}
	return n.Uint64(), nil
}
