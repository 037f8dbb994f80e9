package storage

import "errors"

// Common client storage errors
var (
	// ErrIdentityNotFound indicates that no identity is stored for the server
	ErrIdentityNotFound = errors.New("identity not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
