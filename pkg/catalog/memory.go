package catalog

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

type inMemCatalog struct {
	mu      sync.RWMutex
	basic   *BasicPlan
	modules map[string]ModulePrice
	combos  map[string]ComboPlan
}

// NewInMemCatalog returns an in-memory Catalog seeded with the given
// reference data. Input slices are deep-copied so later modifications by
// the caller cannot affect quotes in flight.
func NewInMemCatalog(basic BasicPlan, modules []ModulePrice, combos []ComboPlan) Catalog {
	c := &inMemCatalog{
		basic:   &basic,
		modules: make(map[string]ModulePrice, len(modules)),
		combos:  make(map[string]ComboPlan, len(combos)),
	}
	for _, m := range modules {
		c.modules[m.ID] = m
	}
	for _, combo := range combos {
		combo.ModuleIDs = slices.Clone(combo.ModuleIDs)
		c.combos[combo.ID] = combo
	}
	return c
}

func (c *inMemCatalog) BasicRates(_ context.Context, cycle BillingCycle) (BasicRates, error) {
	if !cycle.Valid() {
		return BasicRates{}, fmt.Errorf("%w: %q", ErrInvalidCycle, cycle)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.basic == nil {
		return BasicRates{}, ErrBasicPlanNotConfigured
	}
	return c.basic.Rates(cycle), nil
}

func (c *inMemCatalog) Modules(_ context.Context, ids []string) ([]ModulePrice, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]ModulePrice, 0, len(ids))
	for _, id := range ids {
		m, ok := c.modules[id]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrModuleNotFound, id)
		}
		result = append(result, m)
	}
	return result, nil
}

func (c *inMemCatalog) ComboPlan(_ context.Context, id string) (ComboPlan, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	combo, ok := c.combos[id]
	if !ok || !combo.Enabled {
		return ComboPlan{}, fmt.Errorf("%w: %q", ErrComboPlanNotFound, id)
	}
	combo.ModuleIDs = slices.Clone(combo.ModuleIDs)
	return combo, nil
}
