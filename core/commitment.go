package core

import "github.com/ethereum/go-ethereum/common"

// CommitState is the lifecycle state of a bidder's commitment
type CommitState string

const (
	CommitNone      CommitState = "none"
	CommitCommitted CommitState = "committed"
	CommitRevealed  CommitState = "revealed"
	CommitCancelled CommitState = "cancelled"
)

// Commitment is a sealed bid hash and its lifecycle state.
// The zero value is a commitment in CommitNone.
type Commitment struct {
	Hash  common.Hash `json:"hash"`
	State CommitState `json:"state"`
}

func (c Commitment) state() CommitState {
	if c.State == "" {
		return CommitNone
	}
	return c.State
}

// Active reports whether the commitment awaits reveal or cancel
func (c Commitment) Active() bool {
	return c.state() == CommitCommitted
}

// Revealed reports whether the commitment was opened successfully
func (c Commitment) Revealed() bool {
	return c.state() == CommitRevealed
}

// Commit starts a new cycle. Terminal states behave like CommitNone.
func (c Commitment) Commit(hash common.Hash) (Commitment, error) {
	if c.Active() {
		return c, ErrAlreadyCommitted
	}
	return Commitment{Hash: hash, State: CommitCommitted}, nil
}

// Reveal opens the commitment with the hash recomputed from the revealed values
func (c Commitment) Reveal(computed common.Hash) (Commitment, error) {
	if !c.Active() {
		return c, ErrNoActiveCommitment
	}
	if computed != c.Hash {
		return c, ErrHashMismatch
	}
	return Commitment{Hash: c.Hash, State: CommitRevealed}, nil
}

// Cancel withdraws an active commitment and clears its hash
func (c Commitment) Cancel() (Commitment, error) {
	if !c.Active() {
		return c, ErrNoActiveCommitment
	}
	return Commitment{State: CommitCancelled}, nil
}
