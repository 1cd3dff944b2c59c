package coupon

import (
	"context"
	"strings"
	"sync"
)

// Store defines coupon persistence. Codes are matched case-insensitively.
type Store interface {
	// ByCode retrieves a coupon by its unique code.
	// Returns ErrNotFound if no coupon exists with the code.
	ByCode(ctx context.Context, code string) (*Coupon, error)

	// IncrementUsage atomically bumps the redemption counter after a
	// successful subscription creation.
	IncrementUsage(ctx context.Context, code string) error
}

type inMemStore struct {
	mu      sync.RWMutex
	coupons map[string]*Coupon
}

// NewInMemStore returns an in-memory Store seeded with the given coupons.
func NewInMemStore(coupons ...*Coupon) Store {
	s := &inMemStore{coupons: make(map[string]*Coupon, len(coupons))}
	for _, c := range coupons {
		cp := *c
		s.coupons[strings.ToLower(c.Code)] = &cp
	}
	return s
}

func (s *inMemStore) ByCode(_ context.Context, code string) (*Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.coupons[strings.ToLower(code)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *inMemStore) IncrementUsage(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.coupons[strings.ToLower(code)]
	if !ok {
		return ErrNotFound
	}
	c.UsedCount++
	return nil
}
