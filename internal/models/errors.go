package models

import "errors"

// Record and delta validation errors
var (
	// ErrInvalidRecord indicates that a record has no id or typeName
	ErrInvalidRecord = errors.New("invalid record")

	// ErrOverlappingDelta indicates that a delta both overrides and offsets the same field
	ErrOverlappingDelta = errors.New("delta overrides and offsets the same field")

	// ErrNotNumeric indicates that a delta targets a field that does not hold a number
	ErrNotNumeric = errors.New("field is not numeric")
)
