package catalog

import "context"

// Catalog provides read-only lookups of plan pricing reference data.
// Implementations must treat returned values as snapshots: callers may
// hold them across requests without observing admin edits mid-quote.
type Catalog interface {
	// BasicRates returns the basic plan pricing for the given cycle.
	// Returns ErrInvalidCycle or ErrBasicPlanNotConfigured.
	BasicRates(ctx context.Context, cycle BillingCycle) (BasicRates, error)

	// Modules resolves module prices by ID, preserving the requested order.
	// Returns ErrModuleNotFound if any ID is unknown or disabled.
	Modules(ctx context.Context, ids []string) ([]ModulePrice, error)

	// ComboPlan returns a combo plan by ID.
	// Returns ErrComboPlanNotFound if the plan is absent or disabled.
	ComboPlan(ctx context.Context, id string) (ComboPlan, error)
}
