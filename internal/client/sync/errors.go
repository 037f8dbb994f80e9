package sync

import "errors"

var (
	// ErrEngineClosed is returned when the engine has been closed
	ErrEngineClosed = errors.New("sync engine closed")

	// ErrMalformedDiff indicates a remote diff that cannot be applied to the store
	ErrMalformedDiff = errors.New("malformed remote diff")

	// ErrAlreadyStarted is returned by a second call to Start
	ErrAlreadyStarted = errors.New("sync engine already started")
)
