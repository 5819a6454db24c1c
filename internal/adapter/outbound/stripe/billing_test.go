package stripe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ronchon/server/internal/infra/config"
	"github.com/ronchon/server/internal/port/outbound"
	stripego "github.com/stripe/stripe-go/v76"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBackends(url string) *stripego.Backends {
	backend := stripego.GetBackendWithConfig(stripego.APIBackend, &stripego.BackendConfig{
		URL:               stripego.String(url),
		MaxNetworkRetries: stripego.Int64(0),
	})
	return &stripego.Backends{API: backend, Connect: backend, Uploads: backend}
}

func testStripeConfig() *config.StripeConfig {
	return &config.StripeConfig{
		SecretKey:       "sk_test_123",
		PriceID:         "price_premium",
		SuccessURL:      "https://ronchon.com/merci",
		CancelURL:       "https://ronchon.com",
		PortalReturnURL: "https://ronchon.com",
	}
}

func TestBillingClient_CreateCheckoutSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "idem-1", r.Header.Get("Idempotency-Key"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "subscription", r.PostForm.Get("mode"))
		assert.Equal(t, "cid:abc", r.PostForm.Get("client_reference_id"))
		assert.Equal(t, "cid:abc", r.PostForm.Get("metadata[client_key]"))
		assert.Equal(t, "cid:abc", r.PostForm.Get("subscription_data[metadata][client_key]"))
		assert.Equal(t, "price_premium", r.PostForm.Get("line_items[0][price]"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_1","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_1"}`))
	}))
	defer srv.Close()

	c := NewBillingClientWithBackends(testStripeConfig(), testBackends(srv.URL))

	sess, err := c.CreateCheckoutSession(context.Background(), &outbound.CheckoutSessionInput{
		ClientKey:      "cid:abc",
		IdempotencyKey: "idem-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", sess.ID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", sess.URL)
}

func TestBillingClient_CreatePortalSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/billing_portal/sessions", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "cus_1", r.PostForm.Get("customer"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"bps_1","object":"billing_portal.session","url":"https://billing.stripe.com/p/session/bps_1"}`))
	}))
	defer srv.Close()

	c := NewBillingClientWithBackends(testStripeConfig(), testBackends(srv.URL))

	sess, err := c.CreatePortalSession(context.Background(), "cus_1")

	require.NoError(t, err)
	assert.Equal(t, "bps_1", sess.ID)
}

func TestBillingClient_NotConfigured(t *testing.T) {
	cfg := testStripeConfig()
	cfg.PriceID = ""
	c := NewBillingClient(cfg)

	_, err := c.CreateCheckoutSession(context.Background(), &outbound.CheckoutSessionInput{ClientKey: "k"})
	assert.ErrorIs(t, err, ErrNotConfigured)

	cfg.SecretKey = ""
	_, err = NewBillingClient(cfg).CreatePortalSession(context.Background(), "cus_1")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
