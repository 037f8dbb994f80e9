package presence

import (
	"context"
	"io"
	"log/slog"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/sketchsync/internal/client/signal"
	"github.com/iudanet/sketchsync/internal/client/store"
	clientsync "github.com/iudanet/sketchsync/internal/client/sync"
	"github.com/iudanet/sketchsync/internal/client/transport"
	"github.com/iudanet/sketchsync/internal/models"
	"github.com/iudanet/sketchsync/internal/server/room"
	"github.com/iudanet/sketchsync/internal/server/storage/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type client struct {
	engine *clientsync.Engine
	store  *store.Store
	prefs  *signal.Signal[models.UserPreferences]
	rec    *Reconciler
}

func join(t *testing.T, conn transport.Conn, prefs models.UserPreferences) *client {
	t.Helper()
	c := &client{store: store.New(), prefs: signal.New(prefs)}
	c.engine = clientsync.New(c.store, conn, testLogger())
	require.NoError(t, c.engine.Start(context.Background()))
	t.Cleanup(func() { _ = c.engine.Close() })

	c.rec = New(c.engine, c.prefs, testLogger())
	c.rec.Start()
	return c
}

func joinRoom(t *testing.T, r *room.Room, clientID string, prefs models.UserPreferences) *client {
	t.Helper()
	conn, err := transport.NewLocal(r, clientID, testLogger())
	require.NoError(t, err)
	return join(t, conn, prefs)
}

func newTestRoom(t *testing.T) *room.Room {
	t.Helper()
	m := room.NewManager(memory.New(), testLogger())
	t.Cleanup(m.Close)

	r, err := m.Room(context.Background(), "room-1")
	require.NoError(t, err)
	return r
}

func flush(t *testing.T, c *client) {
	t.Helper()
	require.NoError(t, c.engine.Do(context.Background(), func() {}))
}

func submitted(t *testing.T, c *client) int {
	t.Helper()
	n, err := c.engine.Submitted(context.Background())
	require.NoError(t, err)
	return n
}

func serverRecord(r *room.Room, id string) (models.Record, bool) {
	rec, ok, err := r.Get(context.Background(), id)
	if err != nil {
		return nil, false
	}
	return rec, ok
}

func TestReconciler_PublishesOwnPresence(t *testing.T) {
	r := newTestRoom(t)
	a := joinRoom(t, r, "a", models.UserPreferences{ID: "user-a", Name: "Alice"})
	pid := models.PresenceID("a")

	require.Eventually(t, func() bool {
		rec, ok := serverRecord(r, pid)
		return ok && rec["userName"] == "Alice"
	}, 5*time.Second, 10*time.Millisecond)

	flush(t, a)
	rec, ok := a.store.Get(pid)
	require.True(t, ok)
	assert.Equal(t, models.DefaultUserColor, rec["color"])
	assert.Equal(t, "user-a", rec["userId"])
	assert.Equal(t, 1, submitted(t, a))

	// изменения настроек, не меняющие запись, не публикуются
	a.prefs.Set(models.UserPreferences{ID: "user-a", Name: "Alice"})
	flush(t, a)
	assert.Equal(t, 1, submitted(t, a))

	a.prefs.Update(func(p models.UserPreferences) models.UserPreferences {
		p.Color = "#000000"
		return p
	})
	require.Eventually(t, func() bool {
		rec, ok := serverRecord(r, pid)
		return ok && rec["color"] == "#000000"
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, submitted(t, a))
}

func TestReconciler_MirrorsOthers(t *testing.T) {
	r := newTestRoom(t)
	a := joinRoom(t, r, "a", models.UserPreferences{ID: "user-a", Name: "Alice"})

	var removals []store.Change
	var mu gosync.Mutex
	defer a.store.Listen(func(c store.Change) {
		if len(c.Diff.Removed) > 0 {
			mu.Lock()
			removals = append(removals, c)
			mu.Unlock()
		}
	}, store.ListenOptions{Scope: store.ScopePresence})()

	bConn, err := transport.NewLocal(r, "b", testLogger())
	require.NoError(t, err)
	b := join(t, bConn, models.UserPreferences{ID: "user-b", Name: "Bob"})
	pidB := models.PresenceID("b")

	require.Eventually(t, func() bool {
		rec, ok := a.store.Get(pidB)
		return ok && rec["userName"] == "Bob"
	}, 5*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		var others []string
		err := a.engine.Do(context.Background(), func() { others = a.rec.Others() })
		return err == nil && len(others) == 1 && others[0] == pidB
	}, 5*time.Second, 10*time.Millisecond)

	// присутствие других не отправляется обратно в лог
	flush(t, a)
	assert.Equal(t, 1, submitted(t, a))

	require.NoError(t, b.engine.Close())
	require.Eventually(t, func() bool {
		_, ok := a.store.Get(pidB)
		return !ok
	}, 5*time.Second, 10*time.Millisecond)

	_, ok := serverRecord(r, pidB)
	assert.False(t, ok)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, removals)
	for _, c := range removals {
		assert.Equal(t, store.OriginRemote, c.Origin)
	}
}

// rosterConn - управляемое соединение без сервера
type rosterConn struct {
	*transport.ConnMock
	mu     gosync.Mutex
	roster func([]string)
	online func(bool)
}

func newRosterConn(get func(ctx context.Context, key string) (models.Record, bool, error)) *rosterConn {
	c := &rosterConn{}
	c.ConnMock = &transport.ConnMock{
		ClientIDFunc: func() string { return "me" },
		CloseFunc:    func() error { return nil },
		ScanFunc: func(ctx context.Context) ([]models.Record, int64, error) {
			return nil, 0, nil
		},
		GetFunc:    get,
		MutateFunc: func(ctx context.Context, m models.Mutation) error { return nil },
		WatchFunc:  func(fn func(models.Poke)) func() { return func() {} },
		WatchRosterFunc: func(fn func([]string)) func() {
			c.mu.Lock()
			c.roster = fn
			c.mu.Unlock()
			return func() {}
		},
		OnOnlineChangeFunc: func(fn func(bool)) func() {
			c.mu.Lock()
			c.online = fn
			c.mu.Unlock()
			fn(true)
			return func() {}
		},
	}
	return c
}

func (c *rosterConn) setRoster(ids ...string) {
	c.mu.Lock()
	fn := c.roster
	c.mu.Unlock()
	fn(ids)
}

func (c *rosterConn) setOnline(online bool) {
	c.mu.Lock()
	fn := c.online
	c.mu.Unlock()
	fn(online)
}

func TestReconciler_RepublishesAfterReconnect(t *testing.T) {
	conn := newRosterConn(func(ctx context.Context, key string) (models.Record, bool, error) {
		return nil, false, nil
	})
	c := join(t, conn.ConnMock, models.UserPreferences{ID: "u", Name: "Me"})
	flush(t, c)
	require.Len(t, conn.MutateCalls(), 1)

	conn.setOnline(false)
	flush(t, c)
	flush(t, c)
	assert.Len(t, conn.MutateCalls(), 1)

	conn.setOnline(true)
	flush(t, c)
	flush(t, c)

	calls := conn.MutateCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, models.MutatorCreateRecord, calls[1].M.Name)
	assert.JSONEq(t, string(calls[0].M.Args), string(calls[1].M.Args))
	assert.NotEqual(t, calls[0].M.ID, calls[1].M.ID)
}

func TestReconciler_DropsFetchedPresenceOfDepartedClient(t *testing.T) {
	requested := make(chan string, 1)
	release := make(chan struct{})
	conn := newRosterConn(func(ctx context.Context, key string) (models.Record, bool, error) {
		requested <- key
		<-release
		return models.NewPresence(key, models.UserPreferences{ID: "other"}), true, nil
	})
	c := join(t, conn.ConnMock, models.UserPreferences{ID: "u"})

	conn.setRoster("me", "other")
	assert.Equal(t, models.PresenceID("other"), <-requested)

	conn.setRoster("me")
	flush(t, c)
	close(release)

	assert.Never(t, func() bool {
		_, ok := c.store.Get(models.PresenceID("other"))
		return ok
	}, 100*time.Millisecond, 10*time.Millisecond)
}

func TestReconciler_MaterializesFetchedPresence(t *testing.T) {
	conn := newRosterConn(func(ctx context.Context, key string) (models.Record, bool, error) {
		if key == models.PresenceID("gone") {
			return nil, false, nil
		}
		return models.NewPresence(key, models.UserPreferences{ID: key, Name: "Other"}), true, nil
	})
	c := join(t, conn.ConnMock, models.UserPreferences{ID: "u"})

	var changes []store.Change
	var mu gosync.Mutex
	defer c.store.Listen(func(ch store.Change) {
		mu.Lock()
		changes = append(changes, ch)
		mu.Unlock()
	}, store.ListenOptions{Source: store.OriginRemote})()

	conn.setRoster("me", "x", "y", "gone")
	require.Eventually(t, func() bool {
		_, okX := c.store.Get(models.PresenceID("x"))
		_, okY := c.store.Get(models.PresenceID("y"))
		return okX && okY
	}, 5*time.Second, 10*time.Millisecond)

	_, ok := c.store.Get(models.PresenceID("gone"))
	assert.False(t, ok)

	// собственный ключ не запрашивается
	for _, call := range conn.GetCalls() {
		assert.NotEqual(t, models.PresenceID("me"), call.Key)
	}

	conn.setRoster("me", "y")
	flush(t, c)
	_, ok = c.store.Get(models.PresenceID("x"))
	assert.False(t, ok)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, changes, 2)
	assert.Len(t, changes[0].Diff.Added, 2)
	assert.Equal(t, []string{models.PresenceID("x")}, changes[1].Diff.Removed)

	// только собственное присутствие отправлено в лог
	assert.Len(t, conn.MutateCalls(), 1)
}
