package coupon

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Validation failure reasons, reported verbatim inside price breakdowns.
// These are a non-fatal error category: quoting continues at full price and
// the caller decides whether to reject the request or proceed.
const (
	ReasonInvalidCode        = "invalid coupon code"
	ReasonInactive           = "coupon is not active"
	ReasonExpired            = "coupon has expired"
	ReasonUsageLimitReached  = "coupon usage limit reached"
	ReasonMinimumSpendNotMet = "minimum spend not met"
)

// Result is the outcome of validating a coupon against a subtotal.
// Err carries the failure reason; an empty Err with Applied=false means no
// coupon code was supplied at all.
type Result struct {
	Applied        bool
	DiscountAmount decimal.Decimal
	Message        string
	Err            string
}

// NotFound is the result for a supplied code that matches no coupon record.
func NotFound() Result {
	return Result{Err: ReasonInvalidCode}
}

// Validate evaluates the coupon rule set against a subtotal. Checks run in
// a fixed order and the first failing check wins; there is no partial
// application. A nil coupon means no code was supplied, which is not a
// failure.
func Validate(c *Coupon, subtotal decimal.Decimal, now time.Time) Result {
	if c == nil {
		return Result{}
	}

	if !c.Active {
		return Result{Err: ReasonInactive}
	}

	if c.ExpiresAt != nil && now.After(*c.ExpiresAt) {
		return Result{Err: ReasonExpired}
	}

	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return Result{Err: ReasonUsageLimitReached}
	}

	if c.MinimumSpend != nil && subtotal.LessThan(*c.MinimumSpend) {
		return Result{
			Err:     ReasonMinimumSpendNotMet,
			Message: fmt.Sprintf("requires a minimum spend of %s", c.MinimumSpend.String()),
		}
	}

	var discount decimal.Decimal
	switch c.Type {
	case TypePercentage:
		discount = subtotal.Mul(c.Discount).Div(decimal.NewFromInt(100))
	case TypeFixed:
		discount = c.Discount
	default:
		return Result{Err: ReasonInvalidCode}
	}

	result := Result{Applied: true}
	if c.MaximumSpend != nil && discount.GreaterThan(*c.MaximumSpend) {
		discount = *c.MaximumSpend
		result.Message = fmt.Sprintf("discount capped at %s", c.MaximumSpend.String())
	}

	// A discount can never exceed what is being discounted.
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}

	result.DiscountAmount = discount
	return result
}
