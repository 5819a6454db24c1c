package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ronchon/server/internal/port/outbound"
	"github.com/stretchr/testify/assert"
)

func TestToEntity(t *testing.T) {
	rec := &outbound.WebhookEventRecord{
		Provider:  "stripe",
		EventID:   "evt_1",
		EventType: "invoice.paid",
		CreatedAt: time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC),
	}

	e := toEntity(rec)

	assert.NotEqual(t, uuid.Nil, e.ID)
	assert.Equal(t, e.ID, rec.ID)
	assert.Equal(t, "{}", e.Payload)
	assert.Nil(t, e.Error)
	assert.Equal(t, "webhook_events", e.TableName())
}

func TestToEntity_KeepsIDAndError(t *testing.T) {
	id := uuid.New()
	e := toEntity(&outbound.WebhookEventRecord{ID: id, Payload: []byte(`{"a":1}`), Error: "boom"})

	assert.Equal(t, id, e.ID)
	assert.Equal(t, `{"a":1}`, e.Payload)
	if assert.NotNil(t, e.Error) {
		assert.Equal(t, "boom", *e.Error)
	}
}

func TestEntityToRecord(t *testing.T) {
	msg := "boom"
	e := &webhookEventEntity{ID: uuid.New(), Provider: "stripe", EventID: "evt_1", Payload: "{}", Outcome: "failed", Error: &msg}

	rec := e.toRecord()
	assert.Equal(t, e.ID, rec.ID)
	assert.Equal(t, "evt_1", rec.EventID)
	assert.Equal(t, []byte("{}"), rec.Payload)
	assert.Equal(t, "failed", rec.Outcome)
	assert.Equal(t, "boom", rec.Error)
}
