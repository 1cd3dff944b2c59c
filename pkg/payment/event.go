package payment

import "time"

// EventKind is the normalized billing event type consumed by the
// reconciler. Provider-specific event names are mapped here once.
type EventKind string

const (
	EventSubscriptionUpdated EventKind = "subscription.updated"
	EventSubscriptionDeleted EventKind = "subscription.deleted"
	EventPaymentSucceeded    EventKind = "invoice.payment_succeeded"
	EventPaymentFailed       EventKind = "invoice.payment_failed"

	// EventUnknown covers event types this system does not consume. They
	// are acknowledged and dropped to avoid provider retry storms.
	EventUnknown EventKind = ""
)

// Event is a normalized, signature-verified provider event. Status and
// period fields carry the provider's own latest truth; the reconciler
// applies them last-writer-wins instead of toggling local state.
type Event struct {
	ID                 string
	Kind               EventKind
	ProviderType       string
	SubscriptionID     string
	Status             string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool
}
