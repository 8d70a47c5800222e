package service

import "errors"

// Caller-input errors, surfaced immediately and never retried.
var (
	ErrUnknownSymbol   = errors.New("unknown symbol")
	ErrInvalidInterval = errors.New("invalid interval")
	ErrEmptyQuery      = errors.New("query is required")
	ErrUnknownBackend  = errors.New("unknown analysis backend")
)
