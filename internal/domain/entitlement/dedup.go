package entitlement

import (
	"context"
	"fmt"
	"time"

	"github.com/ronchon/server/internal/port/outbound"
)

// Deduplicator remembers processed event ids for ttl.
type Deduplicator struct {
	kv  outbound.KVStorePort
	ttl time.Duration
}

func NewDeduplicator(kv outbound.KVStorePort, ttl time.Duration) *Deduplicator {
	return &Deduplicator{kv: kv, ttl: ttl}
}

// ShouldProcess reports whether eventID has not been marked yet.
func (d *Deduplicator) ShouldProcess(ctx context.Context, eventID string) (bool, error) {
	seen, err := d.kv.Exists(ctx, eventKey(eventID))
	if err != nil {
		return false, fmt.Errorf("check event %s: %w", eventID, err)
	}
	return !seen, nil
}

// MarkProcessed records eventID. Call it only after the event's effects are
// stored.
func (d *Deduplicator) MarkProcessed(ctx context.Context, eventID string) error {
	if err := d.kv.Set(ctx, eventKey(eventID), "1", d.ttl); err != nil {
		return fmt.Errorf("mark event %s: %w", eventID, err)
	}
	return nil
}

func eventKey(id string) string {
	return "events:" + id
}
