// Package vault implements the commit-reveal bid vault: each bidder holds at
// most one active sealed bid, which can be revealed by disclosing the amount
// and salt behind it, or cancelled without disclosing anything.
package vault

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/layer-3/encryptme/core"
	"github.com/layer-3/encryptme/digest"
)

// Vault holds the commitment of every bidder
type Vault struct {
	mu          sync.RWMutex
	commitments map[common.Address]core.Commitment
}

// New creates an empty vault
func New() *Vault {
	return &Vault{
		commitments: make(map[common.Address]core.Commitment),
	}
}

// Commit stores hash as bidder's sealed bid
func (v *Vault) Commit(bidder common.Address, hash common.Hash) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	next, err := v.commitments[bidder].Commit(hash)
	if err != nil {
		return err
	}
	v.commitments[bidder] = next
	return nil
}

// Reveal opens bidder's commitment with amount and salt
func (v *Vault) Reveal(bidder common.Address, amount *big.Int, salt [32]byte) error {
	computed, err := digest.BidHash(amount, salt)
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	next, err := v.commitments[bidder].Reveal(computed)
	if err != nil {
		return err
	}
	v.commitments[bidder] = next
	return nil
}

// Cancel withdraws bidder's active commitment
func (v *Vault) Cancel(bidder common.Address) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	next, err := v.commitments[bidder].Cancel()
	if err != nil {
		return err
	}
	v.commitments[bidder] = next
	return nil
}

// IsCommitted reports whether bidder holds an active commitment
func (v *Vault) IsCommitted(bidder common.Address) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.commitments[bidder].Active()
}

// CommitOf returns bidder's stored hash and whether it was revealed
func (v *Vault) CommitOf(bidder common.Address) (common.Hash, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	c := v.commitments[bidder]
	return c.Hash, c.Revealed()
}

// HasRevealed reports whether bidder's latest commitment was revealed
func (v *Vault) HasRevealed(bidder common.Address) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.commitments[bidder].Revealed()
}

// Commitment returns bidder's full commitment record
func (v *Vault) Commitment(bidder common.Address) core.Commitment {
	v.mu.RLock()
	defer v.mu.RUnlock()
	c := v.commitments[bidder]
	if c.State == "" {
		c.State = core.CommitNone
	}
	return c
}
