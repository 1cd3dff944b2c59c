package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/stackform/bizkit/pkg/pg"
)

type pgCatalog struct {
	db *pgxpool.Pool
}

// NewPgCatalog returns a Catalog backed by the admin-managed pricing tables.
// Amounts are stored as NUMERIC and selected as text to avoid lossy float
// conversion.
func NewPgCatalog(db *pgxpool.Pool) Catalog {
	return &pgCatalog{db: db}
}

func (c *pgCatalog) BasicRates(ctx context.Context, cycle BillingCycle) (BasicRates, error) {
	if !cycle.Valid() {
		return BasicRates{}, fmt.Errorf("%w: %q", ErrInvalidCycle, cycle)
	}

	var base, perUser, perWorkspace string
	err := c.db.QueryRow(ctx, `
		SELECT base_price::text, price_per_user::text, price_per_workspace::text
		FROM basic_plan_rates
		WHERE billing_cycle = $1`, string(cycle),
	).Scan(&base, &perUser, &perWorkspace)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return BasicRates{}, ErrBasicPlanNotConfigured
		}
		return BasicRates{}, errors.Join(ErrFailedToLoadCatalog, err)
	}

	rates := BasicRates{}
	if rates.Base, err = decimal.NewFromString(base); err != nil {
		return BasicRates{}, errors.Join(ErrFailedToLoadCatalog, err)
	}
	if rates.PerUser, err = decimal.NewFromString(perUser); err != nil {
		return BasicRates{}, errors.Join(ErrFailedToLoadCatalog, err)
	}
	if rates.PerWorkspace, err = decimal.NewFromString(perWorkspace); err != nil {
		return BasicRates{}, errors.Join(ErrFailedToLoadCatalog, err)
	}
	return rates, nil
}

func (c *pgCatalog) Modules(ctx context.Context, ids []string) ([]ModulePrice, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := c.db.Query(ctx, `
		SELECT id, name, price_monthly::text, price_yearly::text
		FROM module_prices
		WHERE id = ANY($1) AND enabled`, ids)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadCatalog, err)
	}
	defer rows.Close()

	byID := make(map[string]ModulePrice, len(ids))
	for rows.Next() {
		var m ModulePrice
		var monthly, yearly string
		if err := rows.Scan(&m.ID, &m.Name, &monthly, &yearly); err != nil {
			return nil, errors.Join(ErrFailedToLoadCatalog, err)
		}
		if m.Price.Monthly, err = decimal.NewFromString(monthly); err != nil {
			return nil, errors.Join(ErrFailedToLoadCatalog, err)
		}
		if m.Price.Yearly, err = decimal.NewFromString(yearly); err != nil {
			return nil, errors.Join(ErrFailedToLoadCatalog, err)
		}
		byID[m.ID] = m
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrFailedToLoadCatalog, err)
	}

	// Preserve request order and fail on the first unknown ID.
	result := make([]ModulePrice, 0, len(ids))
	for _, id := range ids {
		m, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrModuleNotFound, id)
		}
		result = append(result, m)
	}
	return result, nil
}

func (c *pgCatalog) ComboPlan(ctx context.Context, id string) (ComboPlan, error) {
	var combo ComboPlan
	var monthly, yearly string
	err := c.db.QueryRow(ctx, `
		SELECT id, name, price_monthly::text, price_yearly::text, user_limit, workspace_limit, enabled
		FROM combo_plans
		WHERE id = $1 AND enabled`, id,
	).Scan(&combo.ID, &combo.Name, &monthly, &yearly, &combo.UserLimit, &combo.WorkspaceLimit, &combo.Enabled)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return ComboPlan{}, fmt.Errorf("%w: %q", ErrComboPlanNotFound, id)
		}
		return ComboPlan{}, errors.Join(ErrFailedToLoadCatalog, err)
	}
	if combo.Price.Monthly, err = decimal.NewFromString(monthly); err != nil {
		return ComboPlan{}, errors.Join(ErrFailedToLoadCatalog, err)
	}
	if combo.Price.Yearly, err = decimal.NewFromString(yearly); err != nil {
		return ComboPlan{}, errors.Join(ErrFailedToLoadCatalog, err)
	}

	rows, err := c.db.Query(ctx, `
		SELECT module_id FROM combo_plan_modules WHERE combo_plan_id = $1 ORDER BY position`, id)
	if err != nil {
		return ComboPlan{}, errors.Join(ErrFailedToLoadCatalog, err)
	}
	defer rows.Close()

	for rows.Next() {
		var moduleID string
		if err := rows.Scan(&moduleID); err != nil {
			return ComboPlan{}, errors.Join(ErrFailedToLoadCatalog, err)
		}
		combo.ModuleIDs = append(combo.ModuleIDs, moduleID)
	}
	if err := rows.Err(); err != nil {
		return ComboPlan{}, errors.Join(ErrFailedToLoadCatalog, err)
	}

	return combo, nil
}
