package stripe

import (
	"context"
	"fmt"

	"github.com/ronchon/server/internal/infra/config"
	"github.com/ronchon/server/internal/port/outbound"
	stripego "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// BillingClient creates hosted Checkout and Customer Portal sessions.
type BillingClient struct {
	api *client.API
	cfg config.StripeConfig
}

// NewBillingClient creates a client using the default Stripe backends.
func NewBillingClient(cfg *config.StripeConfig) *BillingClient {
	return NewBillingClientWithBackends(cfg, nil)
}

// NewBillingClientWithBackends creates a client with explicit backends. A nil
// value selects the defaults.
func NewBillingClientWithBackends(cfg *config.StripeConfig, backends *stripego.Backends) *BillingClient {
	api := &client.API{}
	api.Init(cfg.SecretKey, backends)
	return &BillingClient{api: api, cfg: *cfg}
}

// CreateCheckoutSession starts a subscription checkout for in.ClientKey. The
// key is stored as client_reference_id and as metadata on both the session
// and the subscription so every later webhook can be attributed.
func (b *BillingClient) CreateCheckoutSession(ctx context.Context, in *outbound.CheckoutSessionInput) (*outbound.BillingSession, error) {
	if b.cfg.SecretKey == "" || b.cfg.PriceID == "" {
		return nil, ErrNotConfigured
	}

	params := &stripego.CheckoutSessionParams{
		Mode: stripego.String(string(stripego.CheckoutSessionModeSubscription)),
		LineItems: []*stripego.CheckoutSessionLineItemParams{
			{Price: stripego.String(b.cfg.PriceID), Quantity: stripego.Int64(1)},
		},
		SuccessURL:        stripego.String(b.cfg.SuccessURL),
		CancelURL:         stripego.String(b.cfg.CancelURL),
		ClientReferenceID: stripego.String(in.ClientKey),
		SubscriptionData: &stripego.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{MetadataClientKey: in.ClientKey},
		},
	}
	params.Context = ctx
	params.AddMetadata(MetadataClientKey, in.ClientKey)
	if in.CustomerID != "" {
		params.Customer = stripego.String(in.CustomerID)
	}
	if in.IdempotencyKey != "" {
		params.SetIdempotencyKey(in.IdempotencyKey)
	}

	sess, err := b.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &outbound.BillingSession{ID: sess.ID, URL: sess.URL}, nil
}

// CreatePortalSession opens the customer portal for customerID.
func (b *BillingClient) CreatePortalSession(ctx context.Context, customerID string) (*outbound.BillingSession, error) {
	if b.cfg.SecretKey == "" {
		return nil, ErrNotConfigured
	}

	params := &stripego.BillingPortalSessionParams{
		Customer:  stripego.String(customerID),
		ReturnURL: stripego.String(b.cfg.PortalReturnURL),
	}
	params.Context = ctx

	sess, err := b.api.BillingPortalSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create portal session: %w", err)
	}
	return &outbound.BillingSession{ID: sess.ID, URL: sess.URL}, nil
}

var _ outbound.BillingSessionPort = (*BillingClient)(nil)
