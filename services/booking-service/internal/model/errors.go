package model

import "errors"

var (
	ErrInvalidRange = errors.New("invalid date range")
	ErrConflict     = errors.New("interval conflicts with an existing block")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	// ErrKeyReused means an idempotency key was replayed with a different request.
	ErrKeyReused = errors.New("idempotency key reused with a different request")
)
