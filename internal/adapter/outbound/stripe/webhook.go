// Package stripe adapts Stripe webhooks and hosted billing sessions to the
// entitlement domain.
package stripe

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ronchon/server/internal/domain/entitlement"
	stripego "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

// MetadataClientKey is the metadata field carrying the ClientKey on checkout
// sessions and subscriptions.
const MetadataClientKey = "client_key"

var (
	ErrMissingSignature = errors.New("stripe: missing signature header")
	ErrInvalidSignature = errors.New("stripe: invalid signature")
	ErrNotConfigured    = errors.New("stripe: not configured")
)

// WebhookVerifier authenticates webhook payloads and maps them to engine events.
type WebhookVerifier struct {
	secret string
}

// NewWebhookVerifier creates a verifier for the endpoint signing secret.
func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: secret}
}

// Verify checks the Stripe-Signature header and translates the payload.
func (v *WebhookVerifier) Verify(payload []byte, signature string) (entitlement.Event, error) {
	if v.secret == "" {
		return entitlement.Event{}, ErrNotConfigured
	}
	if strings.TrimSpace(signature) == "" {
		return entitlement.Event{}, ErrMissingSignature
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		Tolerance:                webhook.DefaultTolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return entitlement.Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return Translate(event)
}

// Translate maps a Stripe event to an entitlement event. Types the engine does
// not act on become EventUnhandled so they are still deduplicated.
func Translate(event stripego.Event) (entitlement.Event, error) {
	out := entitlement.Event{
		ID:           event.ID,
		Type:         entitlement.EventUnhandled,
		ProviderType: string(event.Type),
	}
	if event.ID == "" {
		return out, entitlement.ErrInvalidEvent
	}
	if event.Data == nil {
		return out, nil
	}

	switch event.Type {
	case stripego.EventTypeCheckoutSessionCompleted:
		var sess stripego.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return out, fmt.Errorf("decode checkout session: %w", err)
		}
		out.Type = entitlement.EventCheckoutCompleted
		out.Data = entitlement.EventData{
			ClientReferenceKey: firstNonEmpty(sess.ClientReferenceID, sess.Metadata[MetadataClientKey]),
			CustomerID:         customerID(sess.Customer),
			SubscriptionID:     subscriptionID(sess.Subscription),
		}

	case stripego.EventTypeCustomerSubscriptionDeleted:
		var sub stripego.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return out, fmt.Errorf("decode subscription: %w", err)
		}
		out.Type = entitlement.EventSubscriptionDeleted
		out.Data = entitlement.EventData{
			ClientReferenceKey: sub.Metadata[MetadataClientKey],
			CustomerID:         customerID(sub.Customer),
			SubscriptionID:     sub.ID,
		}

	case stripego.EventTypeInvoicePaid, stripego.EventTypeInvoicePaymentSucceeded:
		var inv stripego.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return out, fmt.Errorf("decode invoice: %w", err)
		}
		out.Type = entitlement.EventInvoicePaid
		out.Data = entitlement.EventData{
			ClientReferenceKey: firstNonEmpty(invoiceSubscriptionKey(&inv), inv.Metadata[MetadataClientKey]),
			CustomerID:         customerID(inv.Customer),
			SubscriptionID:     subscriptionID(inv.Subscription),
		}
	}

	return out, nil
}

func customerID(c *stripego.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}

func subscriptionID(s *stripego.Subscription) string {
	if s == nil {
		return ""
	}
	return s.ID
}

// invoiceSubscriptionKey reads the client key Stripe copies from the
// subscription onto the invoice snapshot.
func invoiceSubscriptionKey(inv *stripego.Invoice) string {
	if inv.SubscriptionDetails == nil {
		return ""
	}
	return inv.SubscriptionDetails.Metadata[MetadataClientKey]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
