package service

import "errors"

// Sentinel errors.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrUnknownJob     = errors.New("unknown job kind")
	ErrUnknownHistory = errors.New("unknown history kind")
)
