package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/stackform/bizkit/pkg/catalog"
)

// PlanKind is a tagged plan variant. The caller always knows which flow it
// invoked, so there is no probing to detect the plan type.
type PlanKind string

const (
	PlanBasic PlanKind = "basic"
	PlanCombo PlanKind = "combo"
)

// ComponentKind identifies a line in the price breakdown.
type ComponentKind string

const (
	ComponentBase       ComponentKind = "base"
	ComponentUsers      ComponentKind = "users"
	ComponentWorkspaces ComponentKind = "workspaces"
	ComponentModule     ComponentKind = "module"
)

// Component is one additive term of the subtotal, retained with its unit
// price for transparency.
type Component struct {
	Kind      ComponentKind   `json:"kind"`
	Label     string          `json:"label"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Amount    decimal.Decimal `json:"amount"`
}

// CouponOutcome reports how the coupon fared against the subtotal.
// Err carries a non-fatal validation failure verbatim; the quote total is
// then the full subtotal and the caller decides whether to proceed.
type CouponOutcome struct {
	Code           string          `json:"code"`
	Applied        bool            `json:"applied"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Message        string          `json:"message,omitempty"`
	Err            string          `json:"error,omitempty"`
}

// Breakdown is a full price quote. It is a pure value produced fresh on
// every request and never mutated; subscriptions persist a snapshot of the
// one they were billed against.
type Breakdown struct {
	PlanKind   PlanKind             `json:"plan_kind"`
	ComboID    string               `json:"combo_id,omitempty"`
	Cycle      catalog.BillingCycle `json:"cycle"`
	Components []Component          `json:"components"`
	Subtotal   decimal.Decimal      `json:"subtotal"`
	Coupon     *CouponOutcome       `json:"coupon,omitempty"`
	Total      decimal.Decimal      `json:"total"`
	Currency   string               `json:"currency"`
}
