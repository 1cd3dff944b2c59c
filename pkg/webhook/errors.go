package webhook

import "errors"

var (
	// ErrEmptyPayload is returned when the request body is empty.
	ErrEmptyPayload = errors.New("webhook: empty payload")

	// ErrApplyFailed wraps reconciliation failures so callers can signal the
	// provider to redeliver the event.
	ErrApplyFailed = errors.New("webhook: failed to apply event")
)
