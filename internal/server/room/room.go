// Package room implements the transactional log of a sketch room.
//
// A Room executes catalog mutations one at a time against a storage backend,
// numbers every commit with a Lamport version and broadcasts the committed
// changes to all watchers in commit order.
package room

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/iudanet/sketchsync/internal/clock"
	"github.com/iudanet/sketchsync/internal/models"
	"github.com/iudanet/sketchsync/internal/mutators"
	"github.com/iudanet/sketchsync/internal/server/storage"
)

// WatchBuffer is the number of pokes a watcher may lag behind before it is dropped.
const WatchBuffer = 256

type watcher struct {
	ch       chan models.Poke
	clientID string
}

// Subscription is a snapshot of the room plus the pokes committed after it.
type Subscription struct {
	room    *Room
	w       *watcher
	Pokes   <-chan models.Poke
	Records []models.Record
	Version int64
}

// Close stops the subscription and closes Pokes.
func (s *Subscription) Close() {
	s.room.removeWatcher(s.w)
}

// Room is the transactional log of one room.
type Room struct {
	backend storage.Backend
	logger  *slog.Logger
	clock   *clock.LamportClock

	// lastMutation - id последней выполненной мутации каждого клиента
	lastMutation   map[string]string
	watchers       map[*watcher]struct{}
	roster         map[string]int
	rosterWatchers map[chan []string]struct{}

	id     string
	mu     sync.Mutex
	closed bool
}

func newRoom(ctx context.Context, id string, backend storage.Backend, logger *slog.Logger) (*Room, error) {
	tx, err := backend.Begin(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	version, err := tx.Version(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read room version: %w", err)
	}

	return &Room{
		id:             id,
		backend:        backend,
		logger:         logger.With("room_id", id),
		clock:          clock.NewLamportClock(version),
		lastMutation:   make(map[string]string),
		watchers:       make(map[*watcher]struct{}),
		roster:         make(map[string]int),
		rosterWatchers: make(map[chan []string]struct{}),
	}, nil
}

// ID returns the room id.
func (r *Room) ID() string {
	return r.id
}

// Version returns the version of the last commit.
func (r *Room) Version() int64 {
	return r.clock.Now()
}

// Push executes a mutation submitted by a client.
//
// Mutation ids of one client must increase; an id that is not greater than the
// last one applied is rejected with ErrDuplicateMutation, so replays after a
// reconnect are applied at most once. A *mutators.BatchError is returned together
// with the poke of the parts that were committed.
func (r *Room) Push(ctx context.Context, clientID string, m models.Mutation) (models.Poke, error) {
	if m.ID == "" || m.Name == "" {
		return models.Poke{}, fmt.Errorf("%w: id and name are required", ErrInvalidMutation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return models.Poke{}, ErrRoomClosed
	}
	if last, ok := r.lastMutation[clientID]; ok && m.ID <= last {
		return models.Poke{}, fmt.Errorf("%w: %s", ErrDuplicateMutation, m.ID)
	}

	poke, err := r.apply(ctx, clientID, func(tx mutators.WriteTx) error {
		return mutators.Execute(ctx, tx, m)
	})
	if ctx.Err() == nil {
		r.lastMutation[clientID] = m.ID
	}

	if err != nil {
		r.logger.Warn("Mutation failed",
			"client_id", clientID,
			"mutation", m.Name,
			"mutation_id", m.ID,
			"partial", mutators.IsPartial(err),
			"error", err)
	}

	return poke, err
}

// apply runs fn in a backend transaction. Partial batch failures are committed,
// any other error rolls the transaction back. Must be called with r.mu held.
func (r *Room) apply(ctx context.Context, clientID string, fn func(tx mutators.WriteTx) error) (models.Poke, error) {
	tx, err := r.backend.Begin(ctx, r.id)
	if err != nil {
		return models.Poke{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	wtx := newWriteTx(tx, clientID)
	execErr := fn(wtx)
	if execErr != nil && !mutators.IsPartial(execErr) {
		return models.Poke{}, execErr
	}

	diffs, err := wtx.diffs(ctx)
	if err != nil {
		return models.Poke{}, fmt.Errorf("failed to compute diffs: %w", err)
	}
	if len(diffs) == 0 {
		// Нечего фиксировать и рассылать
		return models.Poke{Version: r.clock.Now()}, execErr
	}

	version := r.clock.Tick()
	if err := tx.SetVersion(ctx, version); err != nil {
		return models.Poke{}, fmt.Errorf("failed to set version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Poke{}, fmt.Errorf("failed to commit: %w", err)
	}

	poke := models.Poke{Version: version, Diffs: diffs}
	r.broadcast(poke)

	r.logger.Debug("Mutation committed",
		"client_id", clientID,
		"version", version,
		"diffs", len(diffs))

	return poke, execErr
}

// broadcast delivers a poke to every watcher. Must be called with r.mu held.
// A watcher whose buffer is full is dropped; it has to resubscribe.
func (r *Room) broadcast(poke models.Poke) {
	for w := range r.watchers {
		select {
		case w.ch <- poke:
		default:
			r.logger.Warn("Dropping slow watcher", "client_id", w.clientID)
			delete(r.watchers, w)
			close(w.ch)
		}
	}
}

// Subscribe returns the current records and a stream of every later commit.
func (r *Room) Subscribe(ctx context.Context, clientID string) (*Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRoomClosed
	}

	records, err := r.scan(ctx)
	if err != nil {
		return nil, err
	}

	w := &watcher{clientID: clientID, ch: make(chan models.Poke, WatchBuffer)}
	r.watchers[w] = struct{}{}

	return &Subscription{
		room:    r,
		w:       w,
		Pokes:   w.ch,
		Records: records,
		Version: r.clock.Now(),
	}, nil
}

func (r *Room) removeWatcher(w *watcher) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.watchers[w]; ok {
		delete(r.watchers, w)
		close(w.ch)
	}
}

// Scan returns every record of the room in key order and the current version.
func (r *Room) Scan(ctx context.Context) ([]models.Record, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, 0, ErrRoomClosed
	}

	records, err := r.scan(ctx)
	if err != nil {
		return nil, 0, err
	}
	return records, r.clock.Now(), nil
}

func (r *Room) scan(ctx context.Context) ([]models.Record, error) {
	tx, err := r.backend.Begin(ctx, r.id)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	kvs, err := tx.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan records: %w", err)
	}
	return decodeAll(kvs)
}

// Get returns one record.
func (r *Room) Get(ctx context.Context, key string) (models.Record, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, false, ErrRoomClosed
	}

	tx, err := r.backend.Begin(ctx, r.id)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	return newWriteTx(tx, "").Get(ctx, key)
}

// Connect adds a client connection to the roster.
// A client may hold several connections; it stays listed until the last one leaves.
func (r *Room) Connect(clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRoomClosed
	}

	r.roster[clientID]++
	if r.roster[clientID] == 1 {
		r.logger.Info("Client connected", "client_id", clientID)
		r.broadcastRoster()
	}
	return nil
}

// Disconnect removes a client connection. When the last connection of the client
// leaves, its presence record is deleted in a regular commit.
func (r *Room) Disconnect(ctx context.Context, clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.roster[clientID] == 0 {
		return nil
	}
	r.roster[clientID]--
	if r.roster[clientID] > 0 {
		return nil
	}

	delete(r.roster, clientID)
	r.logger.Info("Client disconnected", "client_id", clientID)
	if r.closed {
		return nil
	}
	r.broadcastRoster()

	_, err := r.apply(ctx, clientID, func(tx mutators.WriteTx) error {
		return mutators.DeleteRecord(ctx, tx, models.PresenceID(clientID))
	})
	if err != nil {
		return fmt.Errorf("failed to delete presence of %s: %w", clientID, err)
	}
	return nil
}

// Roster returns the connected client ids in sorted order.
func (r *Room) Roster() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.rosterLocked()
}

func (r *Room) rosterLocked() []string {
	ids := make([]string, 0, len(r.roster))
	for id := range r.roster {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// WatchRoster streams the roster. The current roster is delivered immediately;
// a reader that falls behind only sees the latest value.
func (r *Room) WatchRoster() (<-chan []string, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan []string, 1)
	if r.closed {
		close(ch)
		return ch, func() {}
	}

	ch <- r.rosterLocked()
	r.rosterWatchers[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if _, ok := r.rosterWatchers[ch]; ok {
				delete(r.rosterWatchers, ch)
				close(ch)
			}
		})
	}
}

// broadcastRoster must be called with r.mu held.
func (r *Room) broadcastRoster() {
	roster := r.rosterLocked()
	for ch := range r.rosterWatchers {
		// Старое значение вытесняется новым
		select {
		case <-ch:
		default:
		}
		ch <- roster
	}
}

// Close detaches every watcher. Later calls fail with ErrRoomClosed.
func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true

	for w := range r.watchers {
		close(w.ch)
	}
	r.watchers = make(map[*watcher]struct{})
	for ch := range r.rosterWatchers {
		close(ch)
	}
	r.rosterWatchers = make(map[chan []string]struct{})
}
