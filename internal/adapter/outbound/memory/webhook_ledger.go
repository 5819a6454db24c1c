package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ronchon/server/internal/port/outbound"
)

const defaultLedgerCapacity = 1000

// WebhookLedger keeps the most recent webhook deliveries in memory. It is used
// when no database is configured.
type WebhookLedger struct {
	mu       sync.Mutex
	records  []*outbound.WebhookEventRecord
	capacity int
}

// NewWebhookLedger creates a ledger holding at most capacity records.
func NewWebhookLedger(capacity int) *WebhookLedger {
	if capacity <= 0 {
		capacity = defaultLedgerCapacity
	}
	return &WebhookLedger{capacity: capacity}
}

func (l *WebhookLedger) Record(_ context.Context, rec *outbound.WebhookEventRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	cp := *rec
	l.records = append(l.records, &cp)
	if over := len(l.records) - l.capacity; over > 0 {
		l.records = l.records[over:]
	}
	return nil
}

func (l *WebhookLedger) MarkProcessed(_ context.Context, id uuid.UUID, outcome string, processErr error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := len(l.records) - 1; i >= 0; i-- {
		r := l.records[i]
		if r.ID != id {
			continue
		}
		now := time.Now()
		r.Outcome = outcome
		r.ProcessedAt = &now
		if processErr != nil {
			r.Error = processErr.Error()
		}
		return nil
	}
	return nil
}

// Records returns a copy of the stored records, oldest first.
func (l *WebhookLedger) Records() []outbound.WebhookEventRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]outbound.WebhookEventRecord, len(l.records))
	for i, r := range l.records {
		out[i] = *r
	}
	return out
}

func (l *WebhookLedger) List(_ context.Context, outcome string, offset, limit int) ([]*outbound.WebhookEventRecord, int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var matched []*outbound.WebhookEventRecord
	for i := len(l.records) - 1; i >= 0; i-- {
		if outcome != "" && l.records[i].Outcome != outcome {
			continue
		}
		cp := *l.records[i]
		matched = append(matched, &cp)
	}

	total := int64(len(matched))
	if offset >= len(matched) {
		return []*outbound.WebhookEventRecord{}, total, nil
	}
	end := len(matched)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return matched[offset:end], total, nil
}

var _ outbound.WebhookEventLedgerPort = (*WebhookLedger)(nil)
