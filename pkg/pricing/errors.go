package pricing

import "errors"

var (
	ErrInvalidQuantity = errors.New("seat and workspace counts must not be negative")
	ErrMissingComboID  = errors.New("combo plan ID is required")
)
