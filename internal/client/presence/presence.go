// Package presence publishes this client's presence record and mirrors the
// presence of the other clients in the room.
//
// Own presence is write-only: it is derived from user preferences and sent as a
// createRecord mutation, never read back from the log. Presence of others is
// read-only: it is materialized in the store with remote origin and never sent.
package presence

import (
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/iudanet/sketchsync/internal/client/signal"
	"github.com/iudanet/sketchsync/internal/client/store"
	clientsync "github.com/iudanet/sketchsync/internal/client/sync"
	"github.com/iudanet/sketchsync/internal/models"
)

// fetchLimit ограничивает число одновременных запросов присутствия
const fetchLimit = 8

// Reconciler keeps presence records in sync for one engine.
type Reconciler struct {
	engine *clientsync.Engine
	prefs  *signal.Signal[models.UserPreferences]
	logger *slog.Logger

	// поля ниже принадлежат циклу событий движка
	known      map[string]struct{}
	published  models.Record
	wasRemote  bool
	seenRemote bool
}

// New creates a reconciler. prefs is the user preference state presence is derived from.
func New(engine *clientsync.Engine, prefs *signal.Signal[models.UserPreferences], logger *slog.Logger) *Reconciler {
	return &Reconciler{
		engine: engine,
		prefs:  prefs,
		logger: logger.With("presence_id", engine.PresenceID()),
		known:  make(map[string]struct{}),
	}
}

// Start subscribes to preferences, engine state and the roster. Every
// subscription is registered with the engine, so closing the engine stops them.
func (r *Reconciler) Start() {
	presenceID := r.engine.PresenceID()

	derived, stopDerive := signal.Map(r.prefs, func(p models.UserPreferences) models.Record {
		return models.NewPresence(presenceID, p)
	}, signal.WithEqual(func(a, b models.Record) bool { return a.Equal(b) }))
	r.engine.OnClose(stopDerive)

	r.engine.OnClose(derived.Observe(func(rec models.Record) {
		r.engine.Post(func() { r.publish(rec) })
	}))

	// Сервер удаляет присутствие при отключении, после переподключения публикуем заново
	r.engine.OnClose(r.engine.OnStateChange(func(st clientsync.State) {
		remote := st.Status == clientsync.StatusSyncedRemote
		r.engine.Post(func() { r.onRemote(remote) })
	}))

	r.engine.OnClose(r.engine.Conn().WatchRoster(func(clientIDs []string) {
		ids := slices.Clone(clientIDs)
		r.engine.Post(func() { r.reconcile(ids) })
	}))
}

// publish sends the full presence record and mirrors it in the local store.
func (r *Reconciler) publish(rec models.Record) {
	if r.published != nil && r.published.Equal(rec) {
		return
	}
	r.published = rec.Clone()

	m, err := models.NewMutation(models.MutatorCreateRecord, rec)
	if err != nil {
		r.logger.Error("Failed to build presence mutation", "error", err)
		return
	}
	r.engine.Submit(m)

	// Собственное присутствие вне области документа: в лог его не отправит слушатель движка
	if err := r.engine.Store().Put(store.OriginUser, rec); err != nil {
		r.logger.Warn("Failed to store own presence", "error", err)
	}
	r.logger.Debug("Presence published", "name", rec["userName"], "color", rec["color"])
}

func (r *Reconciler) onRemote(remote bool) {
	reconnected := remote && !r.wasRemote && r.seenRemote
	r.wasRemote = remote
	if remote {
		r.seenRemote = true
	}
	if !reconnected || r.published == nil {
		return
	}

	rec := r.published
	r.published = nil
	r.publish(rec)
}

// reconcile applies a roster update: presence of clients that left is removed,
// presence of new clients is fetched and materialized.
func (r *Reconciler) reconcile(clientIDs []string) {
	own := r.engine.PresenceID()

	current := make(map[string]struct{}, len(clientIDs))
	for _, id := range clientIDs {
		if pid := models.PresenceID(id); pid != own {
			current[pid] = struct{}{}
		}
	}

	var added, removed []string
	for pid := range current {
		if _, ok := r.known[pid]; !ok {
			added = append(added, pid)
		}
	}
	for pid := range r.known {
		if _, ok := current[pid]; !ok {
			removed = append(removed, pid)
		}
	}
	r.known = current

	if len(removed) > 0 {
		slices.Sort(removed)
		if err := r.engine.Store().Remove(store.OriginRemote, removed...); err != nil {
			r.logger.Warn("Failed to remove presence", "error", err)
		}
		r.logger.Debug("Presence removed", "ids", removed)
	}

	if len(added) > 0 {
		slices.Sort(added)
		go r.fetch(added)
	}
}

// fetch reads the presence of new clients off the event loop.
func (r *Reconciler) fetch(ids []string) {
	ctx := r.engine.Context()
	conn := r.engine.Conn()

	results := make([]models.Record, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchLimit)
	for i, id := range ids {
		g.Go(func() error {
			rec, ok, err := conn.Get(ctx, id)
			if err != nil {
				// одно неудачное чтение не мешает остальным
				r.logger.Warn("Failed to fetch presence", "id", id, "error", err)
				return nil
			}
			if ok {
				results[i] = rec
			}
			return nil
		})
	}
	_ = g.Wait()

	r.engine.Post(func() { r.materialize(results) })
}

// materialize stores fetched presence of clients still in the roster. A record
// already delivered by a live diff is newer and is kept.
func (r *Reconciler) materialize(records []models.Record) {
	err := r.engine.Store().Transact(store.OriginRemote, func(tx *store.Tx) error {
		for _, rec := range records {
			if rec == nil {
				continue
			}
			if _, ok := r.known[rec.ID()]; !ok {
				continue
			}
			if _, exists := tx.Get(rec.ID()); exists {
				continue
			}
			if err := tx.Put(rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Warn("Failed to materialize presence", "error", err)
	}
}

// Others returns the presence ids of the other clients currently in the roster.
// Must be called on the event loop.
func (r *Reconciler) Others() []string {
	ids := make([]string, 0, len(r.known))
	for id := range r.known {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
