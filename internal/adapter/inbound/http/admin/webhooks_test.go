package adminhttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/ronchon/server/internal/adapter/outbound/memory"
	"github.com/ronchon/server/internal/port/outbound"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedLedger(t *testing.T, ledger *memory.WebhookLedger, outcomes ...string) {
	t.Helper()
	ctx := context.Background()
	for i, outcome := range outcomes {
		rec := &outbound.WebhookEventRecord{
			Provider:  "stripe",
			EventID:   fmt.Sprintf("evt_%d", i),
			EventType: "checkout.session.completed",
		}
		require.NoError(t, ledger.Record(ctx, rec))
		var procErr error
		if outcome == "failed" {
			procErr = errors.New("store down")
		}
		require.NoError(t, ledger.MarkProcessed(ctx, rec.ID, outcome, procErr))
	}
}

func TestListWebhookEvents(t *testing.T) {
	ledger := memory.NewWebhookLedger(0)
	seedLedger(t, ledger, "applied", "duplicate", "failed")
	router, _ := setupRouterWithLedger(t, ledger)

	w := call(router, http.MethodGet, "/api/admin/webhooks?page_size=2", adminToken(t), "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp WebhookEventsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Events, 2)
	assert.Equal(t, "evt_2", resp.Events[0].EventID)
	assert.Equal(t, "failed", resp.Events[0].Outcome)
	assert.Equal(t, "store down", resp.Events[0].Error)
	assert.Equal(t, int64(3), resp.Page.Total)
	assert.Equal(t, 2, resp.Page.TotalPages)
}

func TestListWebhookEvents_FilterByOutcome(t *testing.T) {
	ledger := memory.NewWebhookLedger(0)
	seedLedger(t, ledger, "applied", "duplicate", "applied")
	router, _ := setupRouterWithLedger(t, ledger)

	w := call(router, http.MethodGet, "/api/admin/webhooks?outcome=duplicate", adminToken(t), "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp WebhookEventsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "evt_1", resp.Events[0].EventID)
}

func TestListWebhookEvents_InvalidPage(t *testing.T) {
	router, _ := setupRouter(t)

	w := call(router, http.MethodGet, "/api/admin/webhooks?page_size=500", adminToken(t), "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListWebhookEvents_NoLedger(t *testing.T) {
	router, _ := setupRouterWithLedger(t, nil)

	w := call(router, http.MethodGet, "/api/admin/webhooks", adminToken(t), "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"events":[],"page":{"page":1,"page_size":20,"total":0,"total_pages":0}}`, w.Body.String())
}
