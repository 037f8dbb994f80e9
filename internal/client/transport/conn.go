// Package transport connects a client to the transactional log of a room.
//
// A Conn delivers callbacks from its own goroutines. Callbacks of one
// subscription are never run concurrently and arrive in log order; a stop
// function guarantees that no delivery starts after it returns.
package transport

import (
	"context"
	"errors"

	"github.com/iudanet/sketchsync/internal/models"
)

//go:generate moq -out conn_mock.go . Conn

// ErrClosed is returned by operations on a closed connection.
var ErrClosed = errors.New("connection closed")

// Conn is the client side of the transactional log.
type Conn interface {
	// ClientID returns the id the log knows this connection by
	ClientID() string

	// Scan returns every record of the room and the version they reflect
	Scan(ctx context.Context) ([]models.Record, int64, error)

	// Get returns one record
	Get(ctx context.Context, key string) (models.Record, bool, error)

	// Mutate submits a mutation. It does not wait for the log to confirm it;
	// while offline the mutation is queued and sent after reconnect.
	Mutate(ctx context.Context, m models.Mutation) error

	// Watch delivers confirmed changes committed after the call
	Watch(fn func(models.Poke)) (stop func())

	// WatchRoster delivers the ids of connected clients, starting with the current list
	WatchRoster(fn func(clientIDs []string)) (stop func())

	// OnOnlineChange delivers the online state, starting with the current one
	OnOnlineChange(fn func(online bool)) (stop func())

	// Close disconnects from the room
	Close() error
}

// shadow is the last confirmed server state seen by a subscription. After a
// resubscribe the fresh snapshot is compared with it, and only the difference
// is delivered, so the consumer never has to reload the room.
type shadow struct {
	records map[string]models.Record
	version int64
	synced  bool
}

func newShadow() *shadow {
	return &shadow{records: make(map[string]models.Record)}
}

func (s *shadow) apply(p models.Poke) {
	for _, d := range p.Diffs {
		if d.Op == models.DiffDel {
			delete(s.records, d.Key)
			continue
		}
		s.records[d.Key] = d.NewValue
	}
	if p.Version > s.version {
		s.version = p.Version
	}
}

// reset replaces the shadow with a snapshot. ok is false on the first snapshot
// or when nothing changed while the subscription was down.
func (s *shadow) reset(records []models.Record, version int64) (resume models.Poke, ok bool) {
	next := make(map[string]models.Record, len(records))
	for _, r := range records {
		next[r.ID()] = r
	}

	wasSynced := s.synced
	prev := s.records
	s.records, s.version, s.synced = next, version, true
	if !wasSynced {
		return models.Poke{}, false
	}

	resume.Version = version
	for _, id := range models.SortedIDs(prev) {
		if _, ok := next[id]; !ok {
			resume.Diffs = append(resume.Diffs, models.Diff{Op: models.DiffDel, Key: id})
		}
	}
	for _, id := range models.SortedIDs(next) {
		old, existed := prev[id]
		switch {
		case !existed:
			resume.Diffs = append(resume.Diffs, models.Diff{Op: models.DiffAdd, Key: id, NewValue: next[id]})
		case !old.Equal(next[id]):
			resume.Diffs = append(resume.Diffs, models.Diff{Op: models.DiffChange, Key: id, NewValue: next[id]})
		}
	}
	return resume, len(resume.Diffs) > 0
}
