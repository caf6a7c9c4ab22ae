package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrTargetNotFound    = errors.New("target not found")
	ErrRateLimited       = errors.New("rate limited")
	ErrMalformedTaxonomy = errors.New("malformed taxonomy")
	ErrInvalidConfig     = errors.New("invalid configuration")
)
