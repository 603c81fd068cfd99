package storage

import "errors"

// Sentinel errors for backend operations.
var (
	ErrNotFound      = errors.New("record not found")
	ErrDecode        = errors.New("decode failed")
	ErrConfiguration = errors.New("invalid storage configuration")
	ErrUnavailable   = errors.New("storage unavailable")
	ErrInvalidPath   = errors.New("invalid record path")
)
