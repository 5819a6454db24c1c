package outbound

import "context"

// MessagePublisherPort publishes messages to a broker.
type MessagePublisherPort interface {
	// Publish sends body under routingKey.
	Publish(ctx context.Context, routingKey string, body []byte) error

	Close() error
}
