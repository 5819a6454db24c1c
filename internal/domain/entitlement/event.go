package entitlement

import "github.com/ronchon/server/internal/infra/events"

// EventType is the provider-neutral kind of a billing event.
type EventType string

const (
	EventCheckoutCompleted   EventType = "checkout_completed"
	EventSubscriptionDeleted EventType = "subscription_deleted"
	EventInvoicePaid         EventType = "invoice_paid"
	EventUnhandled           EventType = "unhandled"
)

// EventData carries whatever identifiers the provider sent back.
type EventData struct {
	ClientReferenceKey string
	CustomerID         string
	SubscriptionID     string
}

// Event is a verified billing event.
type Event struct {
	ID           string
	Type         EventType
	ProviderType string // raw provider type, for logs
	Data         EventData
}

// Skip reasons reported by ApplyEvent.
const (
	ReasonDuplicate           = "duplicate"
	ReasonUnattributable      = "unattributable"
	ReasonUnhandled           = "unhandled"
	ReasonSubscriptionDeleted = "subscription_deleted"
	ReasonSubscriptionActive  = "subscription_still_active"
)

// ApplyResult is the outcome of ApplyEvent.
type ApplyResult struct {
	Applied bool   `json:"applied"`
	Reason  string `json:"reason,omitempty"`
	Key     string `json:"-"`
	Tier    Tier   `json:"tier,omitempty"`
}

// Outcome returns "applied" or "skipped".
func (r ApplyResult) Outcome() string {
	if r.Applied {
		return "applied"
	}
	return "skipped"
}

func applied(key string, tier Tier) ApplyResult {
	return ApplyResult{Applied: true, Key: key, Tier: tier}
}

func skipped(reason string) ApplyResult {
	return ApplyResult{Reason: reason}
}

// EventTypePremiumChanged is published whenever a premium flag is written.
const EventTypePremiumChanged = "entitlement.premium_changed"

// PremiumChanged is the domain event for a premium flag write.
type PremiumChanged struct {
	events.BaseEvent
	Key          string `json:"key"`
	Premium      bool   `json:"premium"`
	Source       string `json:"source"`
	BillingEvent string `json:"billing_event,omitempty"`
}

func newPremiumChanged(key string, premium bool, source, billingEvent string) PremiumChanged {
	return PremiumChanged{
		BaseEvent:    events.NewBaseEvent(EventTypePremiumChanged, key),
		Key:          key,
		Premium:      premium,
		Source:       source,
		BillingEvent: billingEvent,
	}
}
