package subscription

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stackform/bizkit/pkg/pg"
)

type pgTenantDirectory struct {
	db *pgxpool.Pool
}

// NewPgTenantDirectory returns a TenantDirectory over the tenants table.
// Deployments with their own tenant store implement TenantDirectory
// directly instead.
func NewPgTenantDirectory(db *pgxpool.Pool) TenantDirectory {
	return &pgTenantDirectory{db: db}
}

func (d *pgTenantDirectory) BillingProfile(ctx context.Context, tenantID uuid.UUID) (*BillingProfile, error) {
	var p BillingProfile
	err := d.db.QueryRow(ctx, `
		SELECT email, name, provider_customer_id, default_payment_method_id
		FROM tenants
		WHERE id = $1`, tenantID,
	).Scan(&p.Email, &p.Name, &p.ProviderCustomerID, &p.DefaultPaymentMethodID)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, errors.Join(ErrTenantProfile, ErrNotFound)
		}
		return nil, errors.Join(ErrTenantProfile, err)
	}
	return &p, nil
}

func (d *pgTenantDirectory) SaveProviderCustomer(ctx context.Context, tenantID uuid.UUID, customerID, methodID string) error {
	tag, err := d.db.Exec(ctx, `
		UPDATE tenants
		SET provider_customer_id = $2, default_payment_method_id = $3
		WHERE id = $1`, tenantID, customerID, methodID)
	if err != nil {
		return errors.Join(ErrTenantProfile, err)
	}
	if tag.RowsAffected() == 0 {
		return errors.Join(ErrTenantProfile, ErrNotFound)
	}
	return nil
}

func (d *pgTenantDirectory) DowngradeToFree(ctx context.Context, tenantID uuid.UUID) error {
	tag, err := d.db.Exec(ctx, `
		UPDATE tenants SET package = 'free' WHERE id = $1`, tenantID)
	if err != nil {
		return errors.Join(ErrTenantProfile, err)
	}
	if tag.RowsAffected() == 0 {
		return errors.Join(ErrTenantProfile, ErrNotFound)
	}
	return nil
}
