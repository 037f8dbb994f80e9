package storage

import "errors"

// Common storage errors
var (
	// ErrBackendClosed indicates that the backend has been closed
	ErrBackendClosed = errors.New("storage backend is closed")

	// ErrTxDone indicates that the transaction was already committed or rolled back
	ErrTxDone = errors.New("transaction already finished")
)
