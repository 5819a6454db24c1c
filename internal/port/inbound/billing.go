package inbound

import "github.com/gin-gonic/gin"

// ===== Billing HTTP Ports =====

// BillingHttpPort defines the hosted billing HTTP handler interface.
type BillingHttpPort interface {
	// CreateCheckoutSession handles POST /api/billing/checkout.
	CreateCheckoutSession(c *gin.Context)

	// CreatePortalSession handles POST /api/billing/portal.
	CreatePortalSession(c *gin.Context)
}

// MockBillingHttpPort defines the development billing shortcut interface.
type MockBillingHttpPort interface {
	// Upgrade handles POST /api/billing/mock/upgrade.
	Upgrade(c *gin.Context)

	// Downgrade handles POST /api/billing/mock/downgrade.
	Downgrade(c *gin.Context)
}

// WebhookHttpPort defines the payment webhook HTTP handler interface.
type WebhookHttpPort interface {
	// HandleStripeWebhook handles POST /api/webhooks/stripe.
	HandleStripeWebhook(c *gin.Context)
}
