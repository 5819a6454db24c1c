package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ronchon/server/internal/port/outbound"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookLedger(t *testing.T) {
	ctx := context.Background()
	l := NewWebhookLedger(2)

	first := &outbound.WebhookEventRecord{Provider: "stripe", EventID: "evt_1"}
	require.NoError(t, l.Record(ctx, first))
	require.NoError(t, l.MarkProcessed(ctx, first.ID, "failed", errors.New("boom")))

	recs := l.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, "failed", recs[0].Outcome)
	assert.Equal(t, "boom", recs[0].Error)
	assert.NotNil(t, recs[0].ProcessedAt)

	require.NoError(t, l.Record(ctx, &outbound.WebhookEventRecord{EventID: "evt_2"}))
	require.NoError(t, l.Record(ctx, &outbound.WebhookEventRecord{EventID: "evt_3"}))

	recs = l.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, "evt_2", recs[0].EventID)
	assert.Equal(t, "evt_3", recs[1].EventID)
}

func TestWebhookLedger_List(t *testing.T) {
	ctx := context.Background()
	l := NewWebhookLedger(0)

	for i, outcome := range []string{"applied", "duplicate", "applied"} {
		rec := &outbound.WebhookEventRecord{EventID: fmt.Sprintf("evt_%d", i)}
		require.NoError(t, l.Record(ctx, rec))
		require.NoError(t, l.MarkProcessed(ctx, rec.ID, outcome, nil))
	}

	all, total, err := l.List(ctx, "", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, all, 3)
	assert.Equal(t, "evt_2", all[0].EventID)

	applied, total, err := l.List(ctx, "applied", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, applied, 1)
	assert.Equal(t, "evt_0", applied[0].EventID)

	empty, total, err := l.List(ctx, "", 5, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Empty(t, empty)
}
