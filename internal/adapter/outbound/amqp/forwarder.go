package amqp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ronchon/server/internal/infra/events"
	"github.com/ronchon/server/internal/port/outbound"
)

// Forwarder relays in-process events to the broker, using the event type as
// routing key.
type Forwarder struct {
	publisher  outbound.MessagePublisherPort
	eventTypes []string
}

// NewForwarder creates a Forwarder for eventTypes.
func NewForwarder(publisher outbound.MessagePublisherPort, eventTypes ...string) *Forwarder {
	return &Forwarder{publisher: publisher, eventTypes: eventTypes}
}

func (f *Forwarder) Handles() []string {
	return f.eventTypes
}

func (f *Forwarder) Handle(ctx context.Context, event events.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", event.EventType(), err)
	}
	return f.publisher.Publish(ctx, event.EventType(), body)
}

var _ events.Handler = (*Forwarder)(nil)
