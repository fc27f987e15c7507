package memledger

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/layer-3/encryptme/ports"
)

// CommitBid stores bidder's sealed bid
func (l *Ledger) CommitBid(ctx context.Context, bidder common.Address, hash common.Hash) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := l.vault.Commit(bidder, hash); err != nil {
		return err
	}
	l.log.Info("Bid committed", "bidder", bidder, "hash", hash)
	l.publish(ctx, ports.TopicBid, ports.EventBidCommitted, bidder, hash)
	return nil
}

// RevealBid opens bidder's commitment
func (l *Ledger) RevealBid(ctx context.Context, bidder common.Address, amount *big.Int, salt [32]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := l.vault.Reveal(bidder, amount, salt); err != nil {
		return err
	}
	hash, _ := l.vault.CommitOf(bidder)
	l.log.Info("Bid revealed", "bidder", bidder, "amount", amount)
	l.publish(ctx, ports.TopicBid, ports.EventBidRevealed, bidder, hash)
	return nil
}

// CancelCommit withdraws bidder's active commitment
func (l *Ledger) CancelCommit(ctx context.Context, bidder common.Address) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := l.vault.Cancel(bidder); err != nil {
		return err
	}
	l.log.Info("Bid cancelled", "bidder", bidder)
	l.publish(ctx, ports.TopicBid, ports.EventBidCancelled, bidder, common.Hash{})
	return nil
}

// IsCommitted reports whether bidder holds an active commitment
func (l *Ledger) IsCommitted(ctx context.Context, bidder common.Address) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return l.vault.IsCommitted(bidder), nil
}

// CommitOf returns bidder's stored hash and whether it was revealed
func (l *Ledger) CommitOf(ctx context.Context, bidder common.Address) (common.Hash, bool, error) {
	if err := ctx.Err(); err != nil {
		return common.Hash{}, false, err
	}
	hash, revealed := l.vault.CommitOf(bidder)
	return hash, revealed, nil
}

// HasRevealed reports whether bidder revealed its latest commitment
func (l *Ledger) HasRevealed(ctx context.Context, bidder common.Address) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return l.vault.HasRevealed(bidder), nil
}
