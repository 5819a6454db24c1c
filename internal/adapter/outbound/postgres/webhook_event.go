// Package postgres stores the webhook audit ledger with GORM.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ronchon/server/internal/port/outbound"
	"gorm.io/gorm"
)

// webhookEventEntity is one delivery of a provider event. Redeliveries get
// their own row.
type webhookEventEntity struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Provider    string     `gorm:"not null;index:idx_webhook_provider_event"`
	EventID     string     `gorm:"not null;index:idx_webhook_provider_event"`
	EventType   string     `gorm:"not null"`
	Payload     string     `gorm:"type:jsonb"`
	Outcome     string     `gorm:"index"`
	ProcessedAt *time.Time
	Error       *string
	CreatedAt   time.Time
}

func (webhookEventEntity) TableName() string {
	return "webhook_events"
}

func toEntity(rec *outbound.WebhookEventRecord) *webhookEventEntity {
	e := &webhookEventEntity{
		ID:          rec.ID,
		Provider:    rec.Provider,
		EventID:     rec.EventID,
		EventType:   rec.EventType,
		Payload:     string(rec.Payload),
		Outcome:     rec.Outcome,
		ProcessedAt: rec.ProcessedAt,
		CreatedAt:   rec.CreatedAt,
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
		rec.ID = e.ID
	}
	if e.Payload == "" {
		e.Payload = "{}"
	}
	if rec.Error != "" {
		msg := rec.Error
		e.Error = &msg
	}
	return e
}

func (e *webhookEventEntity) toRecord() *outbound.WebhookEventRecord {
	rec := &outbound.WebhookEventRecord{
		ID:          e.ID,
		Provider:    e.Provider,
		EventID:     e.EventID,
		EventType:   e.EventType,
		Payload:     []byte(e.Payload),
		Outcome:     e.Outcome,
		ProcessedAt: e.ProcessedAt,
		CreatedAt:   e.CreatedAt,
	}
	if e.Error != nil {
		rec.Error = *e.Error
	}
	return rec
}

type webhookEventAdapter struct {
	db *gorm.DB
}

// NewWebhookEventAdapter creates the ledger adapter.
func NewWebhookEventAdapter(db *gorm.DB) outbound.WebhookEventLedgerPort {
	return &webhookEventAdapter{db: db}
}

// AutoMigrate creates or updates the ledger table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&webhookEventEntity{})
}

func (a *webhookEventAdapter) Record(ctx context.Context, rec *outbound.WebhookEventRecord) error {
	if err := a.db.WithContext(ctx).Create(toEntity(rec)).Error; err != nil {
		return fmt.Errorf("create webhook event: %w", err)
	}
	return nil
}

func (a *webhookEventAdapter) MarkProcessed(ctx context.Context, id uuid.UUID, outcome string, processErr error) error {
	updates := map[string]interface{}{
		"outcome":      outcome,
		"processed_at": time.Now(),
	}
	if processErr != nil {
		updates["error"] = processErr.Error()
	}
	err := a.db.WithContext(ctx).
		Model(&webhookEventEntity{}).
		Where("id = ?", id).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("mark webhook event processed: %w", err)
	}
	return nil
}

func (a *webhookEventAdapter) List(ctx context.Context, outcome string, offset, limit int) ([]*outbound.WebhookEventRecord, int64, error) {
	var entities []*webhookEventEntity
	var total int64

	query := a.db.WithContext(ctx).Model(&webhookEventEntity{})
	if outcome != "" {
		query = query.Where("outcome = ?", outcome)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count webhook events: %w", err)
	}
	if limit > 0 {
		query = query.Offset(offset).Limit(limit)
	}
	if err := query.Order("created_at DESC").Find(&entities).Error; err != nil {
		return nil, 0, fmt.Errorf("list webhook events: %w", err)
	}

	out := make([]*outbound.WebhookEventRecord, len(entities))
	for i, e := range entities {
		out[i] = e.toRecord()
	}
	return out, total, nil
}

var _ outbound.WebhookEventLedgerPort = (*webhookEventAdapter)(nil)
