package store

import "errors"

var (
	// ErrInvalidOrigin is returned when a mutation is made without a known origin
	ErrInvalidOrigin = errors.New("invalid change origin")

	// ErrNotFound is returned by Update for an absent record
	ErrNotFound = errors.New("record not found")

	errTxDone = errors.New("store transaction already finished")
)
