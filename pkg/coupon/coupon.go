package coupon

import (
	"time"

	"github.com/shopspring/decimal"
)

// Type selects how a coupon's discount value is interpreted.
type Type string

const (
	TypePercentage Type = "percentage"
	TypeFixed      Type = "fixed"
)

// Coupon is a discount rule applied against a computed subtotal.
// Optional constraints are pointers: nil means the constraint is not set.
type Coupon struct {
	Code      string
	Type      Type
	Discount  decimal.Decimal
	Active    bool
	ExpiresAt *time.Time
	// UsageLimit caps total redemptions; UsedCount tracks them.
	UsageLimit *int64
	UsedCount  int64
	// MinimumSpend is the smallest subtotal the coupon applies to (inclusive).
	MinimumSpend *decimal.Decimal
	// MaximumSpend caps the computed discount value, not the subtotal.
	MaximumSpend *decimal.Decimal
}

// Usable reports whether the coupon can be redeemed against the given
// subtotal at the given time.
func (c *Coupon) Usable(subtotal decimal.Decimal, now time.Time) bool {
	return Validate(c, subtotal, now).Err == ""
}
