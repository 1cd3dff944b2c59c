package catalog_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackform/bizkit/pkg/catalog"
)

func testCatalog() catalog.Catalog {
	basic := catalog.BasicPlan{
		BasePrice:         catalog.Price{Monthly: decimal.NewFromInt(100), Yearly: decimal.NewFromInt(1000)},
		PricePerUser:      catalog.Price{Monthly: decimal.NewFromInt(10), Yearly: decimal.NewFromInt(100)},
		PricePerWorkspace: catalog.Price{Monthly: decimal.NewFromInt(20), Yearly: decimal.NewFromInt(200)},
	}
	modules := []catalog.ModulePrice{
		{ID: "crm", Name: "CRM", Price: catalog.Price{Monthly: decimal.NewFromInt(50), Yearly: decimal.NewFromInt(500)}},
		{ID: "helpdesk", Name: "Helpdesk", Price: catalog.Price{Monthly: decimal.NewFromInt(75), Yearly: decimal.NewFromInt(750)}},
	}
	combos := []catalog.ComboPlan{
		{
			ID:             "suite",
			Name:           "Business Suite",
			Price:          catalog.Price{Monthly: decimal.NewFromInt(500), Yearly: decimal.NewFromInt(5000)},
			ModuleIDs:      []string{"crm", "helpdesk"},
			UserLimit:      25,
			WorkspaceLimit: 5,
			Enabled:        true,
		},
		{ID: "legacy", Name: "Legacy Suite", Enabled: false},
	}
	return catalog.NewInMemCatalog(basic, modules, combos)
}

func TestInMemCatalog_BasicRates(t *testing.T) {
	t.Parallel()

	c := testCatalog()
	ctx := context.Background()

	t.Run("resolves monthly rates", func(t *testing.T) {
		t.Parallel()
		rates, err := c.BasicRates(ctx, catalog.CycleMonthly)
		require.NoError(t, err)
		assert.True(t, rates.Base.Equal(decimal.NewFromInt(100)))
		assert.True(t, rates.PerUser.Equal(decimal.NewFromInt(10)))
		assert.True(t, rates.PerWorkspace.Equal(decimal.NewFromInt(20)))
	})

	t.Run("yearly rates are independent, not a 12x multiple", func(t *testing.T) {
		t.Parallel()
		rates, err := c.BasicRates(ctx, catalog.CycleYearly)
		require.NoError(t, err)
		assert.True(t, rates.Base.Equal(decimal.NewFromInt(1000)))
	})

	t.Run("rejects unknown cycle", func(t *testing.T) {
		t.Parallel()
		_, err := c.BasicRates(ctx, catalog.BillingCycle("weekly"))
		assert.ErrorIs(t, err, catalog.ErrInvalidCycle)
	})
}

func TestInMemCatalog_Modules(t *testing.T) {
	t.Parallel()

	c := testCatalog()
	ctx := context.Background()

	t.Run("preserves requested order", func(t *testing.T) {
		t.Parallel()
		modules, err := c.Modules(ctx, []string{"helpdesk", "crm"})
		require.NoError(t, err)
		require.Len(t, modules, 2)
		assert.Equal(t, "helpdesk", modules[0].ID)
		assert.Equal(t, "crm", modules[1].ID)
	})

	t.Run("fails on unknown module", func(t *testing.T) {
		t.Parallel()
		_, err := c.Modules(ctx, []string{"crm", "nope"})
		assert.ErrorIs(t, err, catalog.ErrModuleNotFound)
	})

	t.Run("empty ID list yields empty result", func(t *testing.T) {
		t.Parallel()
		modules, err := c.Modules(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, modules)
	})
}

func TestInMemCatalog_ComboPlan(t *testing.T) {
	t.Parallel()

	c := testCatalog()
	ctx := context.Background()

	t.Run("returns enabled combo with bundled modules", func(t *testing.T) {
		t.Parallel()
		combo, err := c.ComboPlan(ctx, "suite")
		require.NoError(t, err)
		assert.Equal(t, []string{"crm", "helpdesk"}, combo.ModuleIDs)
		assert.True(t, combo.Price.For(catalog.CycleMonthly).Equal(decimal.NewFromInt(500)))
	})

	t.Run("disabled combo behaves as not found", func(t *testing.T) {
		t.Parallel()
		_, err := c.ComboPlan(ctx, "legacy")
		assert.ErrorIs(t, err, catalog.ErrComboPlanNotFound)
	})

	t.Run("unknown combo is not found", func(t *testing.T) {
		t.Parallel()
		_, err := c.ComboPlan(ctx, "missing")
		assert.ErrorIs(t, err, catalog.ErrComboPlanNotFound)
	})
}
