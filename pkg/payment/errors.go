package payment

import "errors"

var (
	ErrMissingAPIKey        = errors.New("payment provider API key is required")
	ErrMissingWebhookSecret = errors.New("payment provider webhook secret is required")
	ErrMissingProductID     = errors.New("payment provider product ID is required")

	// ErrAlreadyAttached and ErrNotAttached classify the two payment-method
	// attachment races the lifecycle manager knows how to recover from.
	ErrAlreadyAttached = errors.New("payment method already attached to a customer")
	ErrNotAttached     = errors.New("payment method is not attached")

	// ErrProvider wraps any other provider rejection; the provider message
	// is preserved, the raw SDK error object never escapes this package.
	ErrProvider = errors.New("payment provider error")

	// ErrBadSignature marks webhook payloads that failed authentication.
	ErrBadSignature = errors.New("webhook signature verification failed")
)
