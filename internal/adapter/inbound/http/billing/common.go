package billinghttp

import (
	"context"

	"github.com/ronchon/server/internal/domain/entitlement"
)

// Entitlements is the part of the entitlement engine the billing routes use.
type Entitlements interface {
	GetStatus(ctx context.Context, key string) entitlement.Status
	SetPremiumManually(ctx context.Context, key string, premium bool) error
	ApplyEvent(ctx context.Context, ev entitlement.Event) (entitlement.ApplyResult, error)
}

// CustomerLookup finds the billing customer linked to a client key.
type CustomerLookup interface {
	CustomerForKey(ctx context.Context, key string) (string, bool, error)
}

// SessionResponse is returned for hosted checkout and portal sessions.
type SessionResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// PremiumResponse is returned by the mock billing routes.
type PremiumResponse struct {
	Premium bool   `json:"premium"`
	Tier    string `json:"tier"`
}

// WebhookResponse acknowledges a webhook delivery.
type WebhookResponse struct {
	Status string `json:"status"` // processed, skipped
	Reason string `json:"reason,omitempty"`
}
