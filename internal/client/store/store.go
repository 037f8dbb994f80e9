// Package store is the in-memory replica of a room's records.
//
// Every mutation states its origin explicitly. Listeners receive exactly one
// Change per transaction and can filter it by origin and by scope, which is how
// the sync engine avoids sending remote merges back to the log.
package store

import (
	"fmt"
	"sort"
	"sync"

	"github.com/iudanet/sketchsync/internal/models"
)

// Origin marks where a store mutation came from.
type Origin string

// Источники изменений хранилища
const (
	// OriginUser is a local edit; it is forwarded to the log
	OriginUser Origin = "user"
	// OriginRemote is a merge of state already durable in the log
	OriginRemote Origin = "remote"
)

// Scope selects which records a listener is interested in.
type Scope string

// Области записей
const (
	ScopeAll      Scope = "all"
	ScopeDocument Scope = "document"
	ScopePresence Scope = "presence"
)

// Change is the notification of one committed transaction.
type Change struct {
	// Previous is the value removed records had before the transaction
	Previous map[string]models.Record
	Diff     models.RecordsDiff
	Origin   Origin
}

// Listener receives store changes. It must treat the change as read-only.
type Listener func(Change)

// ListenOptions filter the changes a listener receives.
// An empty Source matches every origin, an empty Scope means ScopeAll.
type ListenOptions struct {
	Source Origin
	Scope  Scope
}

type listener struct {
	fn   Listener
	opts ListenOptions
}

// Store is the record replica.
type Store struct {
	records   map[string]models.Record
	listeners map[int]listener
	// pending - изменения, ожидающие доставки слушателям
	pending     []Change
	nextID      int
	mu          sync.Mutex
	dispatching bool
}

// New creates an empty store.
func New() *Store {
	return &Store{
		records:   make(map[string]models.Record),
		listeners: make(map[int]listener),
	}
}

// Get returns a copy of a record.
func (s *Store) Get(id string) (models.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	return r.Clone(), ok
}

// All returns copies of all records ordered by id.
func (s *Store) All() []models.Record {
	return s.Query(func(models.Record) bool { return true })
}

// Query returns copies of the records accepted by match, ordered by id.
func (s *Store) Query(match func(models.Record) bool) []models.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Record
	for _, id := range models.SortedIDs(s.records) {
		if r := s.records[id]; match(r) {
			out = append(out, r.Clone())
		}
	}
	return out
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Put stores records in one transaction.
func (s *Store) Put(origin Origin, records ...models.Record) error {
	return s.Transact(origin, func(tx *Tx) error {
		for _, r := range records {
			if err := tx.Put(r); err != nil {
				return err
			}
		}
		return nil
	})
}

// Remove deletes records in one transaction. Absent ids are ignored.
func (s *Store) Remove(origin Origin, ids ...string) error {
	return s.Transact(origin, func(tx *Tx) error {
		for _, id := range ids {
			tx.Remove(id)
		}
		return nil
	})
}

// Update replaces a record with fn applied to a copy of it.
func (s *Store) Update(origin Origin, id string, fn func(models.Record) models.Record) error {
	return s.Transact(origin, func(tx *Tx) error {
		r, ok := tx.Get(id)
		if !ok {
			return fmt.Errorf("record %s: %w", id, ErrNotFound)
		}
		return tx.Put(fn(r))
	})
}

// Transact runs fn as one transaction; fn must access the store only through tx.
// If fn fails every write is undone and no listener is notified. Otherwise
// listeners get a single Change with the net effect, so a record added and
// removed in the same transaction is not reported.
func (s *Store) Transact(origin Origin, fn func(tx *Tx) error) error {
	if origin != OriginUser && origin != OriginRemote {
		return fmt.Errorf("%w: %q", ErrInvalidOrigin, origin)
	}

	s.mu.Lock()
	tx := &Tx{s: s, touched: make(map[string]touched)}
	err := fn(tx)
	tx.done = true
	if err != nil {
		tx.rollback()
		s.mu.Unlock()
		return err
	}

	change := tx.change(origin)
	if change.Diff.IsEmpty() {
		s.mu.Unlock()
		return nil
	}
	s.pending = append(s.pending, change)
	s.dispatchLocked()
	return nil
}

// dispatchLocked delivers pending changes outside the lock and returns with the
// lock released. Transactions started by listeners are queued and delivered
// after the current change, so every listener sees changes in commit order.
func (s *Store) dispatchLocked() {
	if s.dispatching {
		s.mu.Unlock()
		return
	}
	s.dispatching = true

	for len(s.pending) > 0 {
		change := s.pending[0]
		s.pending = s.pending[1:]

		ids := make([]int, 0, len(s.listeners))
		for id := range s.listeners {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		active := make([]listener, 0, len(ids))
		for _, id := range ids {
			active = append(active, s.listeners[id])
		}
		s.mu.Unlock()

		for _, l := range active {
			if filtered, ok := filter(change, l.opts); ok {
				l.fn(filtered)
			}
		}

		s.mu.Lock()
	}

	s.dispatching = false
	s.mu.Unlock()
}

// Listen registers a listener. The returned function unregisters it; after it
// returns the listener is not called for any later transaction.
func (s *Store) Listen(fn Listener, opts ListenOptions) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = listener{fn: fn, opts: opts}

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Listeners returns the number of registered listeners.
func (s *Store) Listeners() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

// InScope reports whether a record id belongs to scope.
func InScope(id string, scope Scope) bool {
	switch scope {
	case ScopePresence:
		return models.IsPresenceID(id)
	case ScopeDocument:
		return !models.IsPresenceID(id)
	default:
		return true
	}
}

func filter(change Change, opts ListenOptions) (Change, bool) {
	if opts.Source != "" && opts.Source != change.Origin {
		return Change{}, false
	}
	if opts.Scope == "" || opts.Scope == ScopeAll {
		return change, true
	}

	d := change.Diff.Filter(func(id string, _ models.Record) bool {
		return InScope(id, opts.Scope)
	}, change.Previous)
	if d.IsEmpty() {
		return Change{}, false
	}
	return Change{Origin: change.Origin, Diff: d, Previous: change.Previous}, true
}
