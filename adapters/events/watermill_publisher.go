package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"

	"github.com/layer-3/encryptme/ports"
)

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	prefix    string
	log       log.Logger
}

// NewWatermillPublisher creates a new Watermill publisher. A non-empty prefix
// is prepended to every topic, so several deployments can share one broker.
func NewWatermillPublisher(publisher message.Publisher, prefix string) ports.EventPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		prefix:    prefix,
		log:       log.New("module", "events"),
	}
}

// Publish marshals the event to JSON and publishes it on topic
func (p *WatermillPublisher) Publish(ctx context.Context, topic string, event ports.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("kind", event.Kind)

	if err := p.publisher.Publish(p.prefix+topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.log.Debug("Event published", "topic", p.prefix+topic, "kind", event.Kind, "address", event.Address)
	return nil
}

// Discard is a publisher that drops every event
type Discard struct{}

func (Discard) Publish(context.Context, string, ports.Event) error { return nil }
