package gateway

import "errors"

// Sentinel errors returned by capabilities.
var (
	// ErrUnsupported is returned by a capability that cannot serve an operation.
	ErrUnsupported = errors.New("operation not supported by capability")
	// ErrEmptyResponse marks a provider answer that normalized to no text.
	ErrEmptyResponse = errors.New("empty response")
)
