package storage

import (
	"context"
	"encoding/json"
)

// KV is one stored key and its JSON value.
type KV struct {
	Key   string
	Value json.RawMessage
}

// Backend stores the canonical records of every room.
// The transactional log serializes transactions of one room; a backend only has
// to make each transaction atomic.
type Backend interface {
	// Begin starts a transaction on a room. The room is created on first write.
	Begin(ctx context.Context, roomID string) (Tx, error)

	// Close releases the backend
	Close() error
}

// Tx is a transaction over the records of one room.
type Tx interface {
	// Get returns the value of key; ok is false if the key does not exist
	Get(ctx context.Context, key string) (value json.RawMessage, ok bool, err error)

	// Put stores value under key
	Put(ctx context.Context, key string, value json.RawMessage) error

	// Delete removes key; deleting an absent key is a no-op
	Delete(ctx context.Context, key string) error

	// Scan returns every key of the room in ascending key order
	Scan(ctx context.Context) ([]KV, error)

	// Version returns the last committed log version of the room (0 for a new room)
	Version(ctx context.Context) (int64, error)

	// SetVersion records the log version this transaction commits
	SetVersion(ctx context.Context, version int64) error

	// Commit makes the writes durable
	Commit() error

	// Rollback discards the writes; calling it after Commit is a no-op
	Rollback() error
}
