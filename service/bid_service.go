package service

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/layer-3/encryptme/core"
	"github.com/layer-3/encryptme/digest"
	"github.com/layer-3/encryptme/internal/await"
	"github.com/layer-3/encryptme/ports"
)

const (
	ActionCommitBid    = "commitBid"
	ActionRevealBid    = "revealBid"
	ActionCancelCommit = "cancelCommit"
)

// BidStatus is the vault view of one bidder
type BidStatus struct {
	Committed bool        `json:"committed"`
	Hash      common.Hash `json:"hash"`
	Revealed  bool        `json:"revealed"`
}

// BidService runs sealed-bid actions for the connected account
type BidService struct {
	auth  *Authorizer
	vault ports.BidVault
	log   log.Logger
}

// NewBidService creates a new bid service
func NewBidService(auth *Authorizer, vault ports.BidVault) *BidService {
	return &BidService{
		auth:  auth,
		vault: vault,
		log:   log.New("module", "bids"),
	}
}

func (s *BidService) bidder() common.Address {
	return s.auth.Sessions().Wallet().Address()
}

func (s *BidService) run(ctx context.Context, action string, fn func(ctx context.Context, bidder common.Address) error) error {
	_, err := RequireAuth(ctx, s.auth, action, func(ctx context.Context) (struct{}, error) {
		if err := fn(ctx, s.bidder()); err != nil {
			return struct{}{}, &core.ActionError{Action: action, Step: core.StepSubmit, Err: err}
		}
		return struct{}{}, nil
	})
	return err
}

// Commit seals amount with salt and commits the hash
func (s *BidService) Commit(ctx context.Context, amount *big.Int, salt [32]byte) (common.Hash, error) {
	hash, err := digest.BidHash(amount, salt)
	if err != nil {
		return common.Hash{}, &core.ActionError{Action: ActionCommitBid, Step: core.StepSign, Err: err}
	}
	err = s.run(ctx, ActionCommitBid, func(ctx context.Context, bidder common.Address) error {
		return s.vault.CommitBid(ctx, bidder, hash)
	})
	if err != nil {
		return common.Hash{}, err
	}
	s.log.Info("Bid committed", "bidder", s.bidder(), "hash", hash)
	return hash, nil
}

// Reveal opens the active commitment
func (s *BidService) Reveal(ctx context.Context, amount *big.Int, salt [32]byte) error {
	return s.run(ctx, ActionRevealBid, func(ctx context.Context, bidder common.Address) error {
		return s.vault.RevealBid(ctx, bidder, amount, salt)
	})
}

// Cancel withdraws the active commitment
func (s *BidService) Cancel(ctx context.Context) error {
	return s.run(ctx, ActionCancelCommit, func(ctx context.Context, bidder common.Address) error {
		return s.vault.CancelCommit(ctx, bidder)
	})
}

// Status reads the vault state of bidder
func (s *BidService) Status(ctx context.Context, bidder common.Address) (BidStatus, error) {
	return await.WithTimeout(ctx, s.auth.Sessions().ReadTimeout(), func(ctx context.Context) (BidStatus, error) {
		committed, err := s.vault.IsCommitted(ctx, bidder)
		if err != nil {
			return BidStatus{}, err
		}
		hash, revealed, err := s.vault.CommitOf(ctx, bidder)
		if err != nil {
			return BidStatus{}, err
		}
		return BidStatus{Committed: committed, Hash: hash, Revealed: revealed}, nil
	})
}
