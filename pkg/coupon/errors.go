package coupon

import "errors"

var (
	ErrNotFound          = errors.New("coupon not found")
	ErrFailedToLoad      = errors.New("failed to load coupon")
	ErrFailedToIncrement = errors.New("failed to increment coupon usage")
)
