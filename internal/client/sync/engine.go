// Package sync bridges the local record store and the transactional log.
//
// The Engine pulls the initial snapshot, applies confirmed remote diffs to the
// store as remote-origin transactions and forwards every user-origin document
// transaction as one updateFromStore mutation. All of this runs on a single
// event loop goroutine, so the store never sees two engine writes interleave.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	gosync "sync"

	"github.com/iudanet/sketchsync/internal/client/signal"
	"github.com/iudanet/sketchsync/internal/client/store"
	"github.com/iudanet/sketchsync/internal/client/transport"
	"github.com/iudanet/sketchsync/internal/clock"
	"github.com/iudanet/sketchsync/internal/models"
)

// Status is the sync status of an engine.
type Status string

// Статусы синхронизации
const (
	StatusLoading      Status = "loading"
	StatusSyncedLocal  Status = "synced-local"
	StatusSyncedRemote Status = "synced-remote"
	StatusError        Status = "error"
)

// ConnectionStatus is the online state reported by the transport.
type ConnectionStatus string

// Состояния соединения
const (
	ConnectionOnline  ConnectionStatus = "online"
	ConnectionOffline ConnectionStatus = "offline"
)

// State is what the host application observes.
type State struct {
	// Err is set with StatusError
	Err        error
	Status     Status
	Connection ConnectionStatus
}

// Engine owns the connection of one client to one room.
type Engine struct {
	store  *store.Store
	conn   transport.Conn
	logger *slog.Logger
	state  *signal.Signal[State]
	events *queue

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// version - последняя версия лога, отраженная в хранилище
	version    *clock.LamportClock
	presenceID string

	mu      gosync.Mutex
	stops   []func()
	started bool
	closed  bool

	// поля ниже принадлежат циклу событий
	buffered  []models.Poke
	loaded    bool
	online    bool
	failed    bool
	submitted int
}

// New creates an engine for the store and connection. The engine takes
// ownership of both: Close unsubscribes from the store and closes conn.
func New(s *store.Store, conn transport.Conn, logger *slog.Logger) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	clientID := conn.ClientID()

	return &Engine{
		store:      s,
		conn:       conn,
		logger:     logger.With("client_id", clientID),
		state:      signal.New(State{Status: StatusLoading, Connection: ConnectionOffline}),
		events:     newQueue(),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		version:    clock.NewLamportClock(0),
		presenceID: models.PresenceID(clientID),
	}
}

// Start subscribes to the connection and the store, loads the initial snapshot
// and returns once the store holds it. A failed load leaves the engine in
// StatusError.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}
	if e.started {
		e.mu.Unlock()
		return ErrAlreadyStarted
	}
	e.started = true
	e.mu.Unlock()

	go e.loop()

	// Подписка на изменения до снимка: изменения между снимком и подпиской не теряются
	e.OnClose(e.conn.Watch(func(p models.Poke) {
		e.Post(func() { e.handlePoke(p) })
	}))
	e.OnClose(e.store.Listen(func(c store.Change) {
		e.Post(func() { e.submitChange(c) })
	}, store.ListenOptions{Source: store.OriginUser, Scope: store.ScopeDocument}))
	e.OnClose(e.conn.OnOnlineChange(func(online bool) {
		e.Post(func() { e.setOnline(online) })
	}))

	e.logger.Info("Loading room snapshot")
	records, version, err := e.conn.Scan(ctx)
	if err != nil {
		err = fmt.Errorf("initial scan failed: %w", err)
		e.Post(func() { e.fail(err) })
		return err
	}

	result := make(chan error, 1)
	if !e.Post(func() { result <- e.load(records, version) }) {
		return ErrEngineClosed
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrEngineClosed
	}
}

// Post schedules fn on the event loop. It returns false after Close.
func (e *Engine) Post(fn func()) bool {
	return e.events.push(fn)
}

// Do runs fn on the event loop and waits for it.
func (e *Engine) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !e.Post(func() {
		fn()
		close(finished)
	}) {
		return ErrEngineClosed
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrEngineClosed
	}
}

// OnClose registers a function Close calls before shutting the loop down.
// Components that subscribe on behalf of the engine register their
// unsubscribe functions here.
func (e *Engine) OnClose(stop func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		stop()
		return
	}
	e.stops = append(e.stops, stop)
}

func (e *Engine) loop() {
	defer close(e.done)

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-e.events.notify:
		}

		for _, fn := range e.events.take() {
			if e.ctx.Err() != nil {
				return
			}
			fn()
		}
	}
}

// load merges the initial snapshot and replays pokes buffered while loading.
func (e *Engine) load(records []models.Record, version int64) error {
	if e.failed {
		return e.state.Get().Err
	}

	err := e.store.Transact(store.OriginRemote, func(tx *store.Tx) error {
		for _, r := range records {
			if r.ID() == e.presenceID {
				continue
			}
			if err := tx.Put(r); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		err = fmt.Errorf("failed to merge snapshot: %w", err)
		e.fail(err)
		return err
	}

	e.version.Observe(version)
	e.loaded = true
	e.logger.Info("Snapshot loaded", "records", len(records), "version", version)

	buffered := e.buffered
	e.buffered = nil
	for _, p := range buffered {
		e.applyPoke(p)
	}

	e.updateStatus()
	if e.failed {
		return e.state.Get().Err
	}
	return nil
}

func (e *Engine) handlePoke(p models.Poke) {
	if e.failed {
		return
	}
	if !e.loaded {
		e.buffered = append(e.buffered, p)
		return
	}
	if now := e.version.Now(); p.Version != 0 && p.Version < now {
		// сервер не отправляет версии ниже подтвержденной: лог комнаты сброшен
		e.logger.Warn("Server version went backwards, poke skipped",
			"poke_version", p.Version,
			"version", now,
			"diffs", len(p.Diffs))
	}
	e.applyPoke(p)
}

// applyPoke merges one confirmed poke in a single remote-origin transaction.
func (e *Engine) applyPoke(p models.Poke) {
	if e.failed {
		return
	}
	if p.Version != 0 && p.Version <= e.version.Now() {
		// уже отражено в снимке
		return
	}

	var puts []models.Record
	var dels []string
	for _, d := range p.Diffs {
		// собственное присутствие выводится локально и не читается из лога
		if d.Key == e.presenceID {
			continue
		}

		switch d.Op {
		case models.DiffAdd, models.DiffChange:
			if d.NewValue == nil || d.NewValue.ID() != d.Key {
				e.fail(fmt.Errorf("%w: %s %s without matching value", ErrMalformedDiff, d.Op, d.Key))
				return
			}
			puts = append(puts, d.NewValue)
		case models.DiffDel:
			dels = append(dels, d.Key)
		default:
			e.fail(fmt.Errorf("%w: unknown op %q for %s", ErrMalformedDiff, d.Op, d.Key))
			return
		}
	}

	if len(puts) > 0 || len(dels) > 0 {
		err := e.store.Transact(store.OriginRemote, func(tx *store.Tx) error {
			for _, r := range puts {
				if err := tx.Put(r); err != nil {
					return err
				}
			}
			for _, id := range dels {
				tx.Remove(id)
			}
			return nil
		})
		if err != nil {
			e.fail(fmt.Errorf("%w: %v", ErrMalformedDiff, err))
			return
		}
	}

	e.version.Observe(p.Version)
}

// submitChange forwards one local transaction as a single mutation.
func (e *Engine) submitChange(c store.Change) {
	m, err := models.NewMutation(models.MutatorUpdateFromStore, c.Diff)
	if err != nil {
		e.logger.Error("Failed to build mutation", "error", err)
		return
	}
	e.Submit(m)
}

// Submit sends a mutation to the log. Must be called on the event loop.
// Failures are logged; they are not retried at this layer.
func (e *Engine) Submit(m models.Mutation) {
	e.submitted++
	if err := e.conn.Mutate(e.ctx, m); err != nil {
		e.logger.Warn("Mutation failed",
			"mutation", m.Name,
			"mutation_id", m.ID,
			"error", err)
		return
	}
	e.logger.Debug("Mutation submitted", "mutation", m.Name, "mutation_id", m.ID)
}

func (e *Engine) setOnline(online bool) {
	e.online = online
	e.updateStatus()
}

func (e *Engine) fail(err error) {
	if e.failed {
		return
	}
	e.failed = true
	e.buffered = nil
	e.logger.Error("Sync failed, engine must be recreated", "error", err)
	// ошибка терминальна: updateStatus больше не меняет состояние
	e.state.Set(State{Status: StatusError, Err: err, Connection: e.connection()})
}

func (e *Engine) connection() ConnectionStatus {
	if e.online {
		return ConnectionOnline
	}
	return ConnectionOffline
}

func (e *Engine) updateStatus() {
	if e.failed {
		return
	}

	next := State{Status: StatusLoading, Connection: e.connection()}
	switch {
	case !e.loaded:
	case e.online:
		next.Status = StatusSyncedRemote
	default:
		next.Status = StatusSyncedLocal
	}

	prev := e.state.Get()
	e.state.Set(next)
	if prev.Status != next.Status {
		e.logger.Info("Sync status changed", "from", prev.Status, "to", next.Status)
	}
}

// State returns the current state.
func (e *Engine) State() State {
	return e.state.Get()
}

// OnStateChange calls fn with the current state and on every change.
// Callbacks run on the event loop and must not block.
func (e *Engine) OnStateChange(fn func(State)) func() {
	return e.state.Observe(fn)
}

// Store returns the store the engine writes to.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Conn returns the connection of the engine.
func (e *Engine) Conn() transport.Conn {
	return e.conn
}

// PresenceID returns the id of this connection's presence record.
func (e *Engine) PresenceID() string {
	return e.presenceID
}

// Context is cancelled when the engine closes.
func (e *Engine) Context() context.Context {
	return e.ctx
}

// Submitted returns the number of mutations sent so far.
func (e *Engine) Submitted(ctx context.Context) (int, error) {
	var n int
	err := e.Do(ctx, func() { n = e.submitted })
	return n, err
}

// Close unsubscribes every listener, stops the loop and closes the connection.
// Once Close returns the engine no longer touches the store. It must not be
// called from the event loop.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	stops := e.stops
	e.stops = nil
	started := e.started
	e.mu.Unlock()

	for i := len(stops) - 1; i >= 0; i-- {
		stops[i]()
	}

	e.events.close()
	e.cancel()
	if started {
		<-e.done
	}

	if err := e.conn.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	return nil
}
