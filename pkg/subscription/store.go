package subscription

import (
	"context"

	"github.com/google/uuid"
)

// Store defines subscription persistence.
//
// Create must be backed by a uniqueness guarantee on (tenant, current
// status) so that two racing creations cannot both land: implementations
// return ErrAlreadySubscribed on that conflict.
type Store interface {
	// Create inserts a new subscription row.
	Create(ctx context.Context, sub *Subscription) error

	// Update persists changed mutable fields of an existing row.
	Update(ctx context.Context, sub *Subscription) error

	// CurrentByTenant returns the tenant's subscription with status in
	// {incomplete, active, past_due}. Returns ErrNotFound if none.
	CurrentByTenant(ctx context.Context, tenantID uuid.UUID) (*Subscription, error)

	// ByProviderSubID looks a subscription up by the provider's ID.
	// Returns ErrNotFound if no local row references it.
	ByProviderSubID(ctx context.Context, providerSubID string) (*Subscription, error)
}

// BillingProfile is the slice of the tenant record the billing flow needs.
// Provider identifiers are cached here; the lifecycle manager never
// interprets their structure.
type BillingProfile struct {
	Email                  string
	Name                   string
	ProviderCustomerID     string
	DefaultPaymentMethodID string
}

// TenantDirectory is the out-of-scope tenant store collaborator, reduced
// to the operations billing needs.
type TenantDirectory interface {
	// BillingProfile loads the tenant's billing profile.
	BillingProfile(ctx context.Context, tenantID uuid.UUID) (*BillingProfile, error)

	// SaveProviderCustomer caches the provider customer ID and default
	// payment method on the tenant record.
	SaveProviderCustomer(ctx context.Context, tenantID uuid.UUID, customerID, methodID string) error

	// DowngradeToFree reverts the tenant's package designation to the free
	// tier after cancellation takes effect.
	DowngradeToFree(ctx context.Context, tenantID uuid.UUID) error
}
