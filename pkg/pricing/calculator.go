package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stackform/bizkit/pkg/catalog"
	"github.com/stackform/bizkit/pkg/coupon"
)

// Calculator composes the plan catalog and the coupon validator into full
// price breakdowns. All arithmetic stays in decimal currency units;
// conversion to minor units happens once, at the payment gateway boundary.
type Calculator struct {
	catalog  catalog.Catalog
	coupons  coupon.Store
	currency string
	now      func() time.Time
}

// CalculatorOption configures a Calculator.
type CalculatorOption func(*Calculator)

// WithCurrency overrides the default USD quote currency.
func WithCurrency(currency string) CalculatorOption {
	return func(c *Calculator) {
		if currency != "" {
			c.currency = currency
		}
	}
}

// WithClock overrides the time source used for coupon expiry checks.
func WithClock(now func() time.Time) CalculatorOption {
	return func(c *Calculator) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCalculator creates a Calculator. Panics if the catalog or coupon store
// is nil to fail fast during initialization.
func NewCalculator(cat catalog.Catalog, coupons coupon.Store, opts ...CalculatorOption) *Calculator {
	if cat == nil {
		panic("pricing: catalog is required")
	}
	if coupons == nil {
		panic("pricing: coupon store is required")
	}

	c := &Calculator{
		catalog:  cat,
		coupons:  coupons,
		currency: "USD",
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BasicQuote are the parameters for an a la carte plan quote.
type BasicQuote struct {
	Users      int64
	Workspaces int64
	Cycle      catalog.BillingCycle
	ModuleIDs  []string
	CouponCode string
}

// ComboQuote are the parameters for a fixed bundle quote.
type ComboQuote struct {
	ComboID    string
	Cycle      catalog.BillingCycle
	CouponCode string
}

// QuoteBasic prices a basic plan request:
// base + users*perUser + workspaces*perWorkspace + sum of selected modules.
func (c *Calculator) QuoteBasic(ctx context.Context, q BasicQuote) (*Breakdown, error) {
	if q.Users < 0 || q.Workspaces < 0 {
		return nil, ErrInvalidQuantity
	}

	rates, err := c.catalog.BasicRates(ctx, q.Cycle)
	if err != nil {
		return nil, err
	}
	modules, err := c.catalog.Modules(ctx, q.ModuleIDs)
	if err != nil {
		return nil, err
	}

	components := []Component{
		{Kind: ComponentBase, Label: "base", Quantity: 1, UnitPrice: rates.Base, Amount: rates.Base},
		{
			Kind:      ComponentUsers,
			Label:     "users",
			Quantity:  q.Users,
			UnitPrice: rates.PerUser,
			Amount:    rates.PerUser.Mul(decimal.NewFromInt(q.Users)),
		},
		{
			Kind:      ComponentWorkspaces,
			Label:     "workspaces",
			Quantity:  q.Workspaces,
			UnitPrice: rates.PerWorkspace,
			Amount:    rates.PerWorkspace.Mul(decimal.NewFromInt(q.Workspaces)),
		},
	}
	components = append(components, moduleComponents(modules, q.Cycle)...)

	b := &Breakdown{
		PlanKind:   PlanBasic,
		Cycle:      q.Cycle,
		Components: components,
		Currency:   c.currency,
	}
	return c.finalize(ctx, b, q.CouponCode)
}

// QuoteCombo prices a fixed bundle:
// combo fixed price + sum of its bundled modules.
func (c *Calculator) QuoteCombo(ctx context.Context, q ComboQuote) (*Breakdown, error) {
	if q.ComboID == "" {
		return nil, ErrMissingComboID
	}
	if !q.Cycle.Valid() {
		return nil, catalog.ErrInvalidCycle
	}

	combo, err := c.catalog.ComboPlan(ctx, q.ComboID)
	if err != nil {
		return nil, err
	}
	modules, err := c.catalog.Modules(ctx, combo.ModuleIDs)
	if err != nil {
		return nil, err
	}

	fixed := combo.Price.For(q.Cycle)
	components := []Component{
		{Kind: ComponentBase, Label: combo.Name, Quantity: 1, UnitPrice: fixed, Amount: fixed},
	}
	components = append(components, moduleComponents(modules, q.Cycle)...)

	b := &Breakdown{
		PlanKind:   PlanCombo,
		ComboID:    combo.ID,
		Cycle:      q.Cycle,
		Components: components,
		Currency:   c.currency,
	}
	return c.finalize(ctx, b, q.CouponCode)
}

// finalize sums components, runs coupon validation against the subtotal and
// computes the total. Coupon failures are recorded in the breakdown, never
// returned as errors; only infrastructure failures abort the quote.
func (c *Calculator) finalize(ctx context.Context, b *Breakdown, couponCode string) (*Breakdown, error) {
	subtotal := decimal.Zero
	for _, comp := range b.Components {
		subtotal = subtotal.Add(comp.Amount)
	}
	b.Subtotal = subtotal
	b.Total = subtotal

	if couponCode == "" {
		return b, nil
	}

	outcome := &CouponOutcome{Code: couponCode}
	cpn, err := c.coupons.ByCode(ctx, couponCode)
	switch {
	case errors.Is(err, coupon.ErrNotFound):
		res := coupon.NotFound()
		outcome.Err = res.Err
	case err != nil:
		return nil, err
	default:
		res := coupon.Validate(cpn, subtotal, c.now())
		outcome.Applied = res.Applied
		outcome.DiscountAmount = res.DiscountAmount
		outcome.Message = res.Message
		outcome.Err = res.Err
	}
	b.Coupon = outcome

	if outcome.Applied {
		total := subtotal.Sub(outcome.DiscountAmount)
		if total.IsNegative() {
			total = decimal.Zero
		}
		b.Total = total
	}
	return b, nil
}

func moduleComponents(modules []catalog.ModulePrice, cycle catalog.BillingCycle) []Component {
	components := make([]Component, 0, len(modules))
	for _, m := range modules {
		price := m.Price.For(cycle)
		components = append(components, Component{
			Kind:      ComponentModule,
			Label:     m.Name,
			Quantity:  1,
			UnitPrice: price,
			Amount:    price,
		})
	}
	return components
}
