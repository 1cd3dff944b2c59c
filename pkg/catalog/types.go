package catalog

import "github.com/shopspring/decimal"

// BillingCycle selects which of the independently configured price fields
// applies. Yearly prices are configured explicitly, never derived from
// monthly ones.
type BillingCycle string

const (
	CycleMonthly BillingCycle = "monthly"
	CycleYearly  BillingCycle = "yearly"
)

// Valid reports whether the cycle is one of the supported billing cycles.
func (c BillingCycle) Valid() bool {
	return c == CycleMonthly || c == CycleYearly
}

// Price holds a pair of independently configured amounts, one per billing
// cycle, in decimal currency units.
type Price struct {
	Monthly decimal.Decimal
	Yearly  decimal.Decimal
}

// For returns the amount configured for the given cycle.
func (p Price) For(cycle BillingCycle) decimal.Decimal {
	if cycle == CycleYearly {
		return p.Yearly
	}
	return p.Monthly
}

// BasicPlan is the a la carte plan definition: a base price plus per-seat
// and per-workspace components. Reference data, read-only to billing.
type BasicPlan struct {
	BasePrice         Price
	PricePerUser      Price
	PricePerWorkspace Price
}

// BasicRates is the basic plan pricing resolved for a single billing cycle.
type BasicRates struct {
	Base         decimal.Decimal
	PerUser      decimal.Decimal
	PerWorkspace decimal.Decimal
}

// Rates resolves the plan's price fields for the given cycle.
func (p BasicPlan) Rates(cycle BillingCycle) BasicRates {
	return BasicRates{
		Base:         p.BasePrice.For(cycle),
		PerUser:      p.PricePerUser.For(cycle),
		PerWorkspace: p.PricePerWorkspace.For(cycle),
	}
}

// ModulePrice is an optional priced feature unit, sellable standalone on
// the basic plan or bundled into a combo plan.
type ModulePrice struct {
	ID    string
	Name  string
	Price Price
}

// ComboPlan is a fixed bundle of modules at a flat price.
type ComboPlan struct {
	ID             string
	Name           string
	Price          Price
	ModuleIDs      []string
	UserLimit      int64
	WorkspaceLimit int64
	Enabled        bool
}
