package catalog

import "errors"

var (
	ErrInvalidCycle           = errors.New("invalid billing cycle")
	ErrBasicPlanNotConfigured = errors.New("basic plan pricing not configured")
	ErrModuleNotFound         = errors.New("module not found")
	ErrComboPlanNotFound      = errors.New("combo plan not found")
	ErrFailedToLoadCatalog    = errors.New("failed to load plan catalog")
)
