// Package memory is an in-process storage backend. State is lost on restart.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/iudanet/sketchsync/internal/server/storage"
)

type room struct {
	records map[string]json.RawMessage
	version int64
}

// Storage keeps every room in memory.
type Storage struct {
	rooms  map[string]*room
	mu     sync.RWMutex
	closed bool
}

// New creates an empty in-memory backend.
func New() *Storage {
	return &Storage{rooms: make(map[string]*room)}
}

// Begin starts a transaction. Writes are buffered until Commit.
func (s *Storage) Begin(ctx context.Context, roomID string) (storage.Tx, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrBackendClosed
	}

	return &tx{
		s:      s,
		roomID: roomID,
		writes: make(map[string]json.RawMessage),
	}, nil
}

// Close drops all rooms.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.rooms = nil
	return nil
}

type tx struct {
	s *Storage
	// writes буферизует изменения транзакции; nil значение означает удаление
	writes  map[string]json.RawMessage
	version *int64
	roomID  string
	done    bool
}

func (t *tx) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	if t.done {
		return nil, false, storage.ErrTxDone
	}
	if v, ok := t.writes[key]; ok {
		if v == nil {
			return nil, false, nil
		}
		return clone(v), true, nil
	}

	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	r, ok := t.s.rooms[t.roomID]
	if !ok {
		return nil, false, nil
	}
	v, ok := r.records[key]
	if !ok {
		return nil, false, nil
	}
	return clone(v), true, nil
}

func (t *tx) Put(ctx context.Context, key string, value json.RawMessage) error {
	if t.done {
		return storage.ErrTxDone
	}
	t.writes[key] = clone(value)
	return nil
}

func (t *tx) Delete(ctx context.Context, key string) error {
	if t.done {
		return storage.ErrTxDone
	}
	t.writes[key] = nil
	return nil
}

func (t *tx) Scan(ctx context.Context) ([]storage.KV, error) {
	if t.done {
		return nil, storage.ErrTxDone
	}

	merged := make(map[string]json.RawMessage)

	t.s.mu.RLock()
	if r, ok := t.s.rooms[t.roomID]; ok {
		for k, v := range r.records {
			merged[k] = v
		}
	}
	t.s.mu.RUnlock()

	for k, v := range t.writes {
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]storage.KV, 0, len(keys))
	for _, k := range keys {
		out = append(out, storage.KV{Key: k, Value: clone(merged[k])})
	}
	return out, nil
}

func (t *tx) Version(ctx context.Context) (int64, error) {
	if t.done {
		return 0, storage.ErrTxDone
	}
	if t.version != nil {
		return *t.version, nil
	}

	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	if r, ok := t.s.rooms[t.roomID]; ok {
		return r.version, nil
	}
	return 0, nil
}

func (t *tx) SetVersion(ctx context.Context, version int64) error {
	if t.done {
		return storage.ErrTxDone
	}
	t.version = &version
	return nil
}

func (t *tx) Commit() error {
	if t.done {
		return storage.ErrTxDone
	}
	t.done = true

	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if t.s.closed {
		return storage.ErrBackendClosed
	}

	r, ok := t.s.rooms[t.roomID]
	if !ok {
		r = &room{records: make(map[string]json.RawMessage)}
		t.s.rooms[t.roomID] = r
	}
	for k, v := range t.writes {
		if v == nil {
			delete(r.records, k)
			continue
		}
		r.records[k] = v
	}
	if t.version != nil {
		r.version = *t.version
	}
	return nil
}

func (t *tx) Rollback() error {
	t.done = true
	return nil
}

func clone(v json.RawMessage) json.RawMessage {
	out := make(json.RawMessage, len(v))
	copy(out, v)
	return out
}
