package subscription

import (
	"time"

	"github.com/google/uuid"

	"github.com/stackform/bizkit/pkg/catalog"
	"github.com/stackform/bizkit/pkg/pricing"
)

// Status is the local subscription state machine:
// none -> incomplete -> active <-> past_due -> canceled.
// active -> canceled is also reachable directly (immediate cancel) or via
// the cancel_at_period_end flag once the provider confirms period end.
type Status string

const (
	StatusIncomplete Status = "incomplete"
	StatusActive     Status = "active"
	StatusPastDue    Status = "past_due"
	StatusCanceled   Status = "canceled"
)

// current lists the statuses that count against the one-active-subscription
// invariant.
var current = []Status{StatusIncomplete, StatusActive, StatusPastDue}

// Subscription is a tenant's persisted subscription record. Rows are
// soft-terminated (status=canceled), never deleted, to preserve billing
// history.
type Subscription struct {
	ID       uuid.UUID
	TenantID uuid.UUID

	PlanKind pricing.PlanKind
	// ComboID is set only for combo plans.
	ComboID    string
	Cycle      catalog.BillingCycle
	Users      int64
	Workspaces int64
	ModuleIDs  []string
	CouponCode string

	ProviderCustomerID     string
	ProviderSubscriptionID string

	Status             Status
	CancelAtPeriodEnd  bool
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	NextBillingDate    time.Time

	// LastBreakdown is the immutable price snapshot the provider
	// subscription was last billed against, kept for audit and history.
	LastBreakdown *pricing.Breakdown

	CreatedAt  time.Time
	UpdatedAt  time.Time
	CanceledAt *time.Time
}

func (s *Subscription) IsActive() bool {
	return s.Status == StatusActive
}

func (s *Subscription) IsCanceled() bool {
	return s.Status == StatusCanceled
}

// IsCurrent reports whether the subscription blocks creating another one.
func (s *Subscription) IsCurrent() bool {
	for _, st := range current {
		if s.Status == st {
			return true
		}
	}
	return false
}

// mapProviderStatus normalizes a provider status string onto the local
// state machine. Unknown statuses are reported unmapped so reconciliation
// can keep the current state instead of guessing.
func mapProviderStatus(providerStatus string) (Status, bool) {
	switch providerStatus {
	case "incomplete":
		return StatusIncomplete, true
	case "active", "trialing":
		return StatusActive, true
	case "past_due", "unpaid":
		return StatusPastDue, true
	case "canceled", "cancelled", "incomplete_expired":
		return StatusCanceled, true
	default:
		return "", false
	}
}
