package subscription

import "errors"

var (
	ErrNotFound             = errors.New("subscription not found")
	ErrAlreadySubscribed    = errors.New("tenant already has a current subscription")
	ErrNotActive            = errors.New("subscription is not active")
	ErrCancellationPending  = errors.New("subscription has a pending cancellation")
	ErrMissingTenantID      = errors.New("tenant ID is required")
	ErrMissingPaymentMethod = errors.New("payment method ID is required")
	ErrFailedToPersist      = errors.New("failed to persist subscription")
	ErrTenantProfile        = errors.New("failed to load tenant billing profile")
)
