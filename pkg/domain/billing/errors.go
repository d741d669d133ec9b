package billing

import "errors"

// Billing domain errors.
var (
	// ErrInvalidRate indicates a rate fails validation.
	ErrInvalidRate = errors.New("invalid rate")
	// ErrRateExists indicates a rate ID is already configured.
	ErrRateExists = errors.New("rate already exists")
	// ErrRateNotFound indicates a rate ID is not configured.
	ErrRateNotFound = errors.New("rate not found")
)
