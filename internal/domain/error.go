package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrAlreadyExists   = errors.New("entity already exists")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrLocked          = errors.New("lock is held by another worker")

	// Access control
	ErrBanned       = errors.New("user is banned")
	ErrTokenInvalid = errors.New("invalid or expired token")
	ErrRateLimited  = errors.New("rate limit exceeded")

	// File flows
	ErrNoActiveBatch = errors.New("no active batch")
	ErrEmptyBatch    = errors.New("batch has no files")
)
