package ports

import "context"

// Event topics
const (
	TopicSession = "encryptme.session"
	TopicBid     = "encryptme.bid"
)

// Event is a lifecycle notification for sessions and bids
type Event struct {
	Kind    string `json:"kind"`
	Address string `json:"address"`
	Hash    string `json:"hash,omitempty"`
	At      int64  `json:"at"` // unix milliseconds
}

// Event kinds
const (
	EventSignedIn      = "signed_in"
	EventLedgerSession = "ledger_session"
	EventSignedOut     = "signed_out"
	EventBidCommitted  = "BidCommitted"
	EventBidRevealed   = "BidRevealed"
	EventBidCancelled  = "BidCancelled"
)

// EventPublisher publishes events to notify other instances
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event Event) error
}
