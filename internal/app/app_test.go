package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ronchon/server/internal/adapter/outbound/amqp"
	"github.com/ronchon/server/internal/adapter/outbound/memory"
	"github.com/ronchon/server/internal/infra/config"
	"github.com/ronchon/server/internal/port/outbound"
	"github.com/ronchon/server/internal/utils/metrics"
	"github.com/ronchon/server/internal/utils/middleware"
)

type stubLLM struct{}

func (stubLLM) Complete(context.Context, []outbound.ChatMessage) (string, error) {
	return "Coucou", nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{MaxBodyBytes: 200 * 1024},
		Log:       config.LogConfig{Level: "info"},
		Store:     config.StoreConfig{Driver: "memory", SweepSchedule: "@every 10m"},
		Quota:     config.QuotaConfig{FreeDailyLimit: 2, PremiumDailyLimit: 50},
		Identity:  config.IdentityConfig{HashKeys: false},
		Webhook:   config.WebhookConfig{DedupTTL: time.Hour, MaxBodyBytes: 1 << 20},
		License:   config.LicenseConfig{Keys: []string{"LIC-OK"}},
		RateLimit: config.RateLimitConfig{Enabled: true, Limit: 100, Window: time.Minute, IdempotencyTTL: time.Hour},
		Admin:     config.AdminConfig{JWTSecret: "s3cret"},
		Features:  config.FeaturesConfig{MockBilling: true},
	}
}

// testDependencies mirrors InitializeDependencies with a private metrics
// registry and a stub LLM.
func testDependencies(t *testing.T, cfg *config.Config) *Dependencies {
	t.Helper()
	log := zap.NewNop()
	m := metrics.NewWithRegistry("ronchon", prometheus.NewRegistry())

	st, err := OpenStore(context.Background(), &cfg.Store, &cfg.Redis, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.KV.Close() })

	sched, err := ProvideScheduler(cfg, st, log)
	require.NoError(t, err)

	es := ProvideEntitlementStore(cfg, st)
	bus := ProvideEventBus(amqp.NewNoopPublisher(log), m, log)
	engine := ProvideEngine(cfg, es, st, bus, m, log)
	licenses := ProvideLicenseRegistry(cfg)
	ledger := memory.NewWebhookLedger(0)

	return &Dependencies{
		Config:             cfg,
		Logger:             log,
		Metrics:            m,
		Store:              st,
		RateLimiter:        ProvideRateLimiter(st),
		Scheduler:          sched,
		KeyDeriver:         ProvideKeyDeriver(cfg, log),
		Licenses:           licenses,
		Engine:             engine,
		ChatHandler:        ProvideChatHandler(ProvideChatService(engine, stubLLM{}, log), engine),
		LicenseHandler:     ProvideLicenseHandler(licenses),
		CheckoutHandler:    ProvideCheckoutHandler(ProvideBillingSessions(cfg), es, engine, log),
		MockBillingHandler: ProvideMockBillingHandler(engine),
		WebhookHandler:     ProvideWebhookHandler(cfg, ProvideWebhookVerifier(cfg), engine, ledger, log),
		AdminHandler:       ProvideAdminHandler(engine, es, ledger, log),
	}
}

func request(r http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_Health(t *testing.T) {
	r := NewRouter(testDependencies(t, testConfig()))

	w := request(r, http.MethodGet, "/health", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, "memory", resp.Store)
	assert.False(t, resp.Redis)
	assert.NotEmpty(t, resp.Date)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestRouter_QuotaFlow(t *testing.T) {
	r := NewRouter(testDependencies(t, testConfig()))
	headers := map[string]string{middleware.InstanceIDHeader: "install-1"}
	body := `{"messages":[{"role":"user","content":"salut"}]}`

	for i := 0; i < 2; i++ {
		w := request(r, http.MethodPost, "/api/message", body, headers)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w := request(r, http.MethodPost, "/api/message", body, headers)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "quota_exceeded")

	// A valid license moves the caller to its own premium key.
	headers[middleware.LicenseKeyHeader] = "LIC-OK"
	w = request(r, http.MethodPost, "/api/message", body, headers)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"premium":true`)
}

func TestRouter_MockUpgradeThenStatus(t *testing.T) {
	r := NewRouter(testDependencies(t, testConfig()))
	headers := map[string]string{middleware.InstanceIDHeader: "install-2"}

	require.Equal(t, http.StatusOK, request(r, http.MethodPost, "/api/billing/mock/upgrade", "", headers).Code)

	w := request(r, http.MethodGet, "/api/status", "", headers)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"tier":"premium"`)
}

func TestRouter_MockBillingDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Features.MockBilling = false
	r := NewRouter(testDependencies(t, cfg))

	w := request(r, http.MethodPost, "/api/billing/mock/upgrade", "", map[string]string{middleware.InstanceIDHeader: "x"})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_LicenseAndAdmin(t *testing.T) {
	r := NewRouter(testDependencies(t, testConfig()))

	w := request(r, http.MethodGet, "/api/license?key=LIC-OK", "", nil)
	assert.JSONEq(t, `{"valid":true}`, w.Body.String())

	w = request(r, http.MethodGet, "/api/admin/status/cid:x", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := middleware.IssueAdminToken("s3cret", "ops", time.Hour)
	require.NoError(t, err)
	auth := map[string]string{"Authorization": "Bearer " + token}
	w = request(r, http.MethodGet, "/api/admin/status/cid:x", "", auth)
	assert.Equal(t, http.StatusOK, w.Code)

	w = request(r, http.MethodGet, "/api/admin/webhooks", "", auth)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":0`)
}

func TestRouter_WebhookNotConfigured(t *testing.T) {
	r := NewRouter(testDependencies(t, testConfig()))

	w := request(r, http.MethodPost, "/api/webhooks/stripe", `{}`, map[string]string{"Stripe-Signature": "t=1,v1=00"})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestOpenStore_Fallbacks(t *testing.T) {
	log := zap.NewNop()

	t.Run("auto without redis or sqlite uses memory", func(t *testing.T) {
		st, err := OpenStore(context.Background(), &config.StoreConfig{Driver: "auto"}, &config.RedisConfig{}, log)
		require.NoError(t, err)
		assert.Equal(t, "memory", st.KV.Name())
		assert.NotNil(t, st.Sweeper)
	})

	t.Run("auto with unreachable redis falls back to sqlite", func(t *testing.T) {
		path := t.TempDir() + "/ronchon.db"
		st, err := OpenStore(context.Background(),
			&config.StoreConfig{Driver: "auto", SQLitePath: path, ProbeTimeout: 200 * time.Millisecond},
			&config.RedisConfig{Address: "127.0.0.1:1"}, log)
		require.NoError(t, err)
		defer st.KV.Close()
		assert.Equal(t, "sqlite", st.KV.Name())
		assert.Nil(t, st.Redis)
	})

	t.Run("explicit redis fails hard", func(t *testing.T) {
		_, err := OpenStore(context.Background(),
			&config.StoreConfig{Driver: "redis", ProbeTimeout: 200 * time.Millisecond},
			&config.RedisConfig{Address: "127.0.0.1:1"}, log)
		assert.Error(t, err)
	})

	t.Run("sqlite without path", func(t *testing.T) {
		_, err := OpenStore(context.Background(), &config.StoreConfig{Driver: "sqlite"}, &config.RedisConfig{}, log)
		assert.Error(t, err)
	})
}
