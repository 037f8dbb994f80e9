// Package mutators is the catalog of named transactions that change durable state.
//
// Every mutator reads at most one record and then writes or deletes at most one.
// Mutators never modify their arguments or the values they read.
package mutators

import (
	"context"

	"github.com/iudanet/sketchsync/internal/models"
)

//go:generate moq -out tx_mock.go . WriteTx

// ReadTx is a read-only view of the log.
type ReadTx interface {
	// Get returns the record stored under key; ok is false if there is none
	Get(ctx context.Context, key string) (models.Record, bool, error)

	// Scan returns every record in key order
	Scan(ctx context.Context) ([]models.Record, error)
}

// WriteTx is the transactional handle mutators execute against.
type WriteTx interface {
	ReadTx

	// Set stores value under key
	Set(ctx context.Context, key string, value models.Record) error

	// Del removes key; deleting an absent key is a no-op
	Del(ctx context.Context, key string) error

	// ClientID returns the id of the client that submitted the mutation
	ClientID() string
}
