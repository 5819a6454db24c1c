package outbound

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// WebhookEventRecord is an audit row for a received provider event.
type WebhookEventRecord struct {
	ID          uuid.UUID
	Provider    string
	EventID     string
	EventType   string
	Payload     []byte
	Outcome     string
	ProcessedAt *time.Time
	Error       string
	CreatedAt   time.Time
}

// WebhookEventLedgerPort persists received webhook events for audit.
type WebhookEventLedgerPort interface {
	// Record stores a newly received event.
	Record(ctx context.Context, event *WebhookEventRecord) error

	// MarkProcessed records the outcome of processing.
	MarkProcessed(ctx context.Context, id uuid.UUID, outcome string, processErr error) error

	// List returns records newest first, plus the total count. A non-empty
	// outcome filters on it.
	List(ctx context.Context, outcome string, offset, limit int) ([]*WebhookEventRecord, int64, error)
}
