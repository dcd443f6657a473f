// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates failed authentication/authorization.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrAlreadyExists indicates a unique constraint violation (username or IMEI taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrOutOfStock indicates a product unit is no longer available for sale.
	ErrOutOfStock = errors.New("out of stock")

	// ErrValidation marks input rejected before touching storage.
	ErrValidation = errors.New("validation")
)
