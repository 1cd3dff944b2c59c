package subscription

import (
	"log/slog"
	"time"
)

// ServiceOption configures a Service instance.
type ServiceOption func(*Service)

// WithLogger sets the structured logger used for reconciliation and
// best-effort side channel failures.
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithCouponCounter enables redemption counting after successful creation.
func WithCouponCounter(c CouponCounter) ServiceOption {
	return func(s *Service) {
		if c != nil {
			s.coupons = c
		}
	}
}

// WithClock overrides the time source, useful for deterministic tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
