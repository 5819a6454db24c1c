package outbound

import "context"

// CheckoutSessionInput describes a subscription checkout for one client key.
type CheckoutSessionInput struct {
	ClientKey      string
	CustomerID     string // reuse an existing customer when known
	IdempotencyKey string
}

// BillingSession is a hosted payment page the caller is redirected to.
type BillingSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// BillingSessionPort creates hosted checkout and customer portal sessions.
type BillingSessionPort interface {
	CreateCheckoutSession(ctx context.Context, in *CheckoutSessionInput) (*BillingSession, error)
	CreatePortalSession(ctx context.Context, customerID string) (*BillingSession, error)
}
