package subscription

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stackform/bizkit/pkg/pg"
	"github.com/stackform/bizkit/pkg/pricing"
)

type pgStore struct {
	db *pgxpool.Pool
}

// NewPgStore returns a Store backed by the subscriptions table. The
// single-current-subscription invariant is enforced by a partial unique
// index on tenant_id over current statuses; violations surface as
// ErrAlreadySubscribed.
func NewPgStore(db *pgxpool.Pool) Store {
	return &pgStore{db: db}
}

const subscriptionColumns = `
	id, tenant_id, plan_kind, combo_id, billing_cycle, users, workspaces,
	module_ids, coupon_code, provider_customer_id, provider_subscription_id,
	status, cancel_at_period_end, current_period_start, current_period_end,
	next_billing_date, last_breakdown, created_at, updated_at, canceled_at`

func (s *pgStore) Create(ctx context.Context, sub *Subscription) error {
	breakdown, err := marshalBreakdown(sub.LastBreakdown)
	if err != nil {
		return errors.Join(ErrFailedToPersist, err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO subscriptions (`+subscriptionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		sub.ID, sub.TenantID, sub.PlanKind, sub.ComboID, sub.Cycle, sub.Users, sub.Workspaces,
		sub.ModuleIDs, sub.CouponCode, sub.ProviderCustomerID, sub.ProviderSubscriptionID,
		sub.Status, sub.CancelAtPeriodEnd, sub.CurrentPeriodStart, sub.CurrentPeriodEnd,
		sub.NextBillingDate, breakdown, sub.CreatedAt, sub.UpdatedAt, sub.CanceledAt)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return ErrAlreadySubscribed
		}
		return errors.Join(ErrFailedToPersist, err)
	}
	return nil
}

func (s *pgStore) Update(ctx context.Context, sub *Subscription) error {
	breakdown, err := marshalBreakdown(sub.LastBreakdown)
	if err != nil {
		return errors.Join(ErrFailedToPersist, err)
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE subscriptions SET
			users = $2, workspaces = $3, module_ids = $4, coupon_code = $5,
			combo_id = $6, status = $7, cancel_at_period_end = $8,
			current_period_start = $9, current_period_end = $10,
			next_billing_date = $11, last_breakdown = $12,
			updated_at = $13, canceled_at = $14
		WHERE id = $1`,
		sub.ID, sub.Users, sub.Workspaces, sub.ModuleIDs, sub.CouponCode,
		sub.ComboID, sub.Status, sub.CancelAtPeriodEnd,
		sub.CurrentPeriodStart, sub.CurrentPeriodEnd,
		sub.NextBillingDate, breakdown, sub.UpdatedAt, sub.CanceledAt)
	if err != nil {
		return errors.Join(ErrFailedToPersist, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgStore) CurrentByTenant(ctx context.Context, tenantID uuid.UUID) (*Subscription, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE tenant_id = $1 AND status IN ('incomplete', 'active', 'past_due')`,
		tenantID)
	return scanSubscription(row)
}

func (s *pgStore) ByProviderSubID(ctx context.Context, providerSubID string) (*Subscription, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE provider_subscription_id = $1
		ORDER BY created_at DESC
		LIMIT 1`,
		providerSubID)
	return scanSubscription(row)
}

func scanSubscription(row pgx.Row) (*Subscription, error) {
	var (
		sub       Subscription
		breakdown []byte
	)
	err := row.Scan(
		&sub.ID, &sub.TenantID, &sub.PlanKind, &sub.ComboID, &sub.Cycle, &sub.Users, &sub.Workspaces,
		&sub.ModuleIDs, &sub.CouponCode, &sub.ProviderCustomerID, &sub.ProviderSubscriptionID,
		&sub.Status, &sub.CancelAtPeriodEnd, &sub.CurrentPeriodStart, &sub.CurrentPeriodEnd,
		&sub.NextBillingDate, &breakdown, &sub.CreatedAt, &sub.UpdatedAt, &sub.CanceledAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if len(breakdown) > 0 {
		var b pricing.Breakdown
		if err := json.Unmarshal(breakdown, &b); err != nil {
			return nil, err
		}
		sub.LastBreakdown = &b
	}
	return &sub, nil
}

func marshalBreakdown(b *pricing.Breakdown) ([]byte, error) {
	if b == nil {
		return nil, nil
	}
	return json.Marshal(b)
}
