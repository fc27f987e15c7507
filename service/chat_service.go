package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/layer-3/encryptme/core"
	"github.com/layer-3/encryptme/digest"
	"github.com/layer-3/encryptme/internal/await"
	"github.com/layer-3/encryptme/ports"
)

// DecryptedMessage is a message opened by its reader. Opaque is set when
// the network has no encryption oracle and Plaintext is nil; Handle is then
// the content hash.
type DecryptedMessage struct {
	ID        uint64      `json:"id"`
	Handle    common.Hash `json:"handle"`
	Plaintext []byte      `json:"plaintext,omitempty"`
	Opaque    bool        `json:"opaque"`
}

// MessageView is the public listing entry of a message
type MessageView struct {
	ID uint64 `json:"id"`
	core.MessageMetadata
}

// ChatService runs the authorized chat actions of the connected account
type ChatService struct {
	auth   *Authorizer
	ledger ports.Ledger
	oracle ports.Oracle
	log    log.Logger
}

// NewChatService creates a new chat service
func NewChatService(auth *Authorizer, ledger ports.Ledger, oracle ports.Oracle) *ChatService {
	return &ChatService{
		auth:   auth,
		ledger: ledger,
		oracle: oracle,
		log:    log.New("module", "chat"),
	}
}

// Register records publicKey as the connected account's identity key.
// Unregistered accounts cannot hold ledger sessions, so this runs on a
// local-only session.
func (s *ChatService) Register(ctx context.Context, publicKey common.Hash) error {
	_, err := RequireAuth(ctx, s.auth, digest.ActionRegisterUser, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.auth.Submit(ctx, digest.ActionRegisterUser, digest.RegisterArgs(publicKey),
			func(ctx context.Context, auth core.Authorization) error {
				return s.ledger.RegisterUser(ctx, core.RegisterUser{PublicKey: publicKey, Auth: auth})
			})
	})
	if err != nil {
		return err
	}
	s.log.Info("Registered", "address", s.auth.Sessions().Wallet().Address())
	return nil
}

// GrantAccess lets recipient read the connected account's messages
func (s *ChatService) GrantAccess(ctx context.Context, recipient common.Address) error {
	_, err := RequireAuth(ctx, s.auth, digest.ActionGrantAccess, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.auth.Submit(ctx, digest.ActionGrantAccess, digest.GrantArgs(recipient),
			func(ctx context.Context, auth core.Authorization) error {
				return s.ledger.GrantAccess(ctx, core.GrantAccess{Recipient: recipient, Auth: auth})
			})
	})
	return err
}

// SendMessage encrypts plaintext for recipient and stores it on the ledger
func (s *ChatService) SendMessage(ctx context.Context, recipient common.Address, plaintext []byte) (uint64, error) {
	return RequireAuth(ctx, s.auth, digest.ActionSendMessage, func(ctx context.Context) (uint64, error) {
		ct, err := s.oracle.Encrypt(ctx, plaintext)
		if err != nil {
			return 0, &core.ActionError{Action: digest.ActionSendMessage, Step: core.StepSign, Err: err}
		}

		var id uint64
		args := digest.SendArgs(recipient, ct.Handle, ct.Proof)
		err = s.auth.Submit(ctx, digest.ActionSendMessage, args, func(ctx context.Context, auth core.Authorization) error {
			var err error
			id, err = s.ledger.SendMessage(ctx, core.SendMessage{
				Recipient: recipient,
				Content:   ct.Handle,
				Proof:     ct.Proof,
				Auth:      auth,
			})
			return err
		})
		if err != nil {
			return 0, err
		}
		s.log.Info("Message sent", "id", id, "recipient", recipient, "encrypted", s.oracle.Supported())
		return id, nil
	})
}

// DecryptMessage marks message id decrypted on the ledger and opens it
func (s *ChatService) DecryptMessage(ctx context.Context, id uint64) (*DecryptedMessage, error) {
	return RequireAuth(ctx, s.auth, digest.ActionDecryptMessage, func(ctx context.Context) (*DecryptedMessage, error) {
		err := s.auth.Submit(ctx, digest.ActionDecryptMessage, digest.DecryptArgs(id),
			func(ctx context.Context, auth core.Authorization) error {
				return s.ledger.DecryptMessage(ctx, core.DecryptMessage{MessageID: id, Auth: auth})
			})
		if err != nil {
			return nil, err
		}

		handle, err := await.WithTimeout(ctx, s.auth.Sessions().ReadTimeout(), func(ctx context.Context) (common.Hash, error) {
			return s.ledger.EncryptedMessage(ctx, id)
		})
		if err != nil {
			return nil, fmt.Errorf("read message %d: %w", id, err)
		}

		msg := &DecryptedMessage{ID: id, Handle: handle}
		plaintext, err := s.oracle.Decrypt(ctx, handle)
		switch {
		case err == nil:
			msg.Plaintext = plaintext
		case errors.Is(err, core.ErrDecryptUnsupported):
			msg.Opaque = true
		default:
			return nil, fmt.Errorf("decrypt message %d: %w", id, err)
		}
		return msg, nil
	})
}

// Messages lists the metadata of every stored message
func (s *ChatService) Messages(ctx context.Context) ([]MessageView, error) {
	timeout := s.auth.Sessions().ReadTimeout()
	count, err := await.WithTimeout(ctx, timeout, s.ledger.MessageCount)
	if err != nil {
		return nil, fmt.Errorf("read message count: %w", err)
	}

	views := make([]MessageView, 0, count)
	for id := uint64(0); id < count; id++ {
		meta, err := await.WithTimeout(ctx, timeout, func(ctx context.Context) (core.MessageMetadata, error) {
			return s.ledger.MessageMetadata(ctx, id)
		})
		if err != nil {
			return nil, fmt.Errorf("read message %d: %w", id, err)
		}
		views = append(views, MessageView{ID: id, MessageMetadata: meta})
	}
	return views, nil
}
