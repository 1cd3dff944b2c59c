package coupon

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/stackform/bizkit/pkg/pg"
)

type pgStore struct {
	db *pgxpool.Pool
}

// NewPgStore returns a Store backed by the coupons table.
func NewPgStore(db *pgxpool.Pool) Store {
	return &pgStore{db: db}
}

func (s *pgStore) ByCode(ctx context.Context, code string) (*Coupon, error) {
	var (
		c            Coupon
		discount     string
		minimumSpend *string
		maximumSpend *string
		expiresAt    *time.Time
	)
	err := s.db.QueryRow(ctx, `
		SELECT code, discount_type, discount::text, is_active, expires_at,
		       usage_limit, used_count, minimum_spend::text, maximum_spend::text
		FROM coupons
		WHERE lower(code) = lower($1)`, code,
	).Scan(&c.Code, &c.Type, &discount, &c.Active, &expiresAt,
		&c.UsageLimit, &c.UsedCount, &minimumSpend, &maximumSpend)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Join(ErrFailedToLoad, err)
	}

	c.ExpiresAt = expiresAt
	if c.Discount, err = decimal.NewFromString(discount); err != nil {
		return nil, errors.Join(ErrFailedToLoad, err)
	}
	if minimumSpend != nil {
		v, err := decimal.NewFromString(*minimumSpend)
		if err != nil {
			return nil, errors.Join(ErrFailedToLoad, err)
		}
		c.MinimumSpend = &v
	}
	if maximumSpend != nil {
		v, err := decimal.NewFromString(*maximumSpend)
		if err != nil {
			return nil, errors.Join(ErrFailedToLoad, err)
		}
		c.MaximumSpend = &v
	}
	return &c, nil
}

func (s *pgStore) IncrementUsage(ctx context.Context, code string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE coupons SET used_count = used_count + 1 WHERE lower(code) = lower($1)`, code)
	if err != nil {
		return errors.Join(ErrFailedToIncrement, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
