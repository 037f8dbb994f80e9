package room

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/sketchsync/internal/models"
	"github.com/iudanet/sketchsync/internal/mutators"
	"github.com/iudanet/sketchsync/internal/server/storage/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRoom(t *testing.T) *Room {
	t.Helper()
	m := NewManager(memory.New(), testLogger())
	t.Cleanup(m.Close)

	r, err := m.Room(context.Background(), "room-1")
	require.NoError(t, err)
	return r
}

func mutation(t *testing.T, name string, args any) models.Mutation {
	t.Helper()
	m, err := models.NewMutation(name, args)
	require.NoError(t, err)
	return m
}

func shape(id string, x float64) models.Record {
	return models.NewShape(id, models.Geometry{X: x, W: 10, H: 10, Opacity: 1}, nil)
}

func TestRoom_PushProducesOrderedPokes(t *testing.T) {
	ctx := context.Background()
	r := newTestRoom(t)

	sub, err := r.Subscribe(ctx, "observer")
	require.NoError(t, err)
	defer sub.Close()
	assert.Empty(t, sub.Records)
	assert.Equal(t, int64(0), sub.Version)

	poke, err := r.Push(ctx, "c1", mutation(t, models.MutatorCreateRecord, shape("shape1", 0)))
	require.NoError(t, err)
	assert.Equal(t, int64(1), poke.Version)
	require.Len(t, poke.Diffs, 1)
	assert.Equal(t, models.DiffAdd, poke.Diffs[0].Op)
	assert.Equal(t, "shape1", poke.Diffs[0].Key)

	_, err = r.Push(ctx, "c1", mutation(t, models.MutatorUpdateShape, models.ShapeDelta{ID: "shape1", DX: models.Float(5)}))
	require.NoError(t, err)

	_, err = r.Push(ctx, "c1", mutation(t, models.MutatorDeleteRecord, models.DeleteRecordArgs{ID: "shape1"}))
	require.NoError(t, err)

	var got []models.Poke
	for range 3 {
		got = append(got, <-sub.Pokes)
	}

	assert.Equal(t, int64(1), got[0].Version)
	assert.Equal(t, int64(2), got[1].Version)
	assert.Equal(t, models.DiffChange, got[1].Diffs[0].Op)
	assert.Equal(t, 5.0, got[1].Diffs[0].NewValue.Geometry().X)
	assert.Equal(t, int64(3), got[2].Version)
	assert.Equal(t, models.DiffDel, got[2].Diffs[0].Op)
	assert.Nil(t, got[2].Diffs[0].NewValue)
}

func TestRoom_DuplicateMutation(t *testing.T) {
	ctx := context.Background()
	r := newTestRoom(t)

	first := mutation(t, models.MutatorCreateRecord, shape("shape1", 0))
	second := mutation(t, models.MutatorUpdateShape, models.ShapeDelta{ID: "shape1", DX: models.Float(1)})

	_, err := r.Push(ctx, "c1", first)
	require.NoError(t, err)
	_, err = r.Push(ctx, "c1", second)
	require.NoError(t, err)

	// повтор и устаревший id отклоняются
	_, err = r.Push(ctx, "c1", second)
	assert.ErrorIs(t, err, ErrDuplicateMutation)
	_, err = r.Push(ctx, "c1", first)
	assert.ErrorIs(t, err, ErrDuplicateMutation)

	// тот же id от другого клиента - другая мутация
	_, err = r.Push(ctx, "c2", second)
	require.NoError(t, err)

	rec, ok, err := r.Get(ctx, "shape1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2.0, rec.Geometry().X)
	assert.Equal(t, int64(3), r.Version())
}

func TestRoom_ConnectionsKeepSeparateMutationOrder(t *testing.T) {
	ctx := context.Background()
	r := newTestRoom(t)

	// мутации двух подключений одного пользователя приходят не по порядку id
	older := mutation(t, models.MutatorCreateRecord, shape("shape1", 0))
	newer := mutation(t, models.MutatorCreateRecord, shape("shape2", 0))

	_, err := r.Push(ctx, "conn-b", newer)
	require.NoError(t, err)
	_, err = r.Push(ctx, "conn-a", older)
	require.NoError(t, err)

	_, ok, err := r.Get(ctx, "shape1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(2), r.Version())
}

func TestRoom_InvalidMutation(t *testing.T) {
	r := newTestRoom(t)
	_, err := r.Push(context.Background(), "c1", models.Mutation{Name: models.MutatorCreateRecord})
	assert.ErrorIs(t, err, ErrInvalidMutation)
}

func TestRoom_NoOpMutationIsNotBroadcast(t *testing.T) {
	ctx := context.Background()
	r := newTestRoom(t)

	_, err := r.Push(ctx, "c1", mutation(t, models.MutatorCreateRecord, shape("shape1", 0)))
	require.NoError(t, err)

	sub, err := r.Subscribe(ctx, "observer")
	require.NoError(t, err)
	defer sub.Close()
	require.Len(t, sub.Records, 1)

	poke, err := r.Push(ctx, "c1", mutation(t, models.MutatorCreateRecord, shape("shape1", 0)))
	require.NoError(t, err)
	assert.Empty(t, poke.Diffs)
	assert.Equal(t, int64(1), poke.Version)
	assert.Empty(t, sub.Pokes)
}

func TestRoom_FailedMutationRollsBack(t *testing.T) {
	ctx := context.Background()
	r := newTestRoom(t)

	_, err := r.Push(ctx, "c1", models.Mutation{ID: "01", Name: "dropRoom", Args: json.RawMessage(`{}`)})
	assert.ErrorIs(t, err, mutators.ErrUnknownMutator)

	_, err = r.Push(ctx, "c1", mutation(t, models.MutatorCreateRecord, models.Record{"id": "x"}))
	assert.ErrorIs(t, err, models.ErrInvalidRecord)

	records, version, err := r.Scan(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, int64(0), version)
}

func TestRoom_PartialBatchIsCommitted(t *testing.T) {
	ctx := context.Background()
	r := newTestRoom(t)

	changes := models.NewRecordsDiff()
	changes.Added["good"] = models.Record{"id": "good", "typeName": models.TypePage}
	changes.Added["bad"] = models.Record{"id": "bad"}

	poke, err := r.Push(ctx, "c1", mutation(t, models.MutatorUpdateFromStore, changes))
	require.Error(t, err)
	assert.True(t, mutators.IsPartial(err))
	require.Len(t, poke.Diffs, 1)
	assert.Equal(t, "good", poke.Diffs[0].Key)

	records, _, err := r.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "good", records[0].ID())
}

func TestRoom_DeleteWins(t *testing.T) {
	ctx := context.Background()
	r := newTestRoom(t)

	_, err := r.Push(ctx, "c1", mutation(t, models.MutatorCreateRecord, shape("shape1", 0)))
	require.NoError(t, err)
	_, err = r.Push(ctx, "c2", mutation(t, models.MutatorDeleteRecord, models.DeleteRecordArgs{ID: "shape1"}))
	require.NoError(t, err)

	poke, err := r.Push(ctx, "c1", mutation(t, models.MutatorUpdateShape, models.ShapeDelta{ID: "shape1", DX: models.Float(10)}))
	require.NoError(t, err)
	assert.Empty(t, poke.Diffs)

	_, ok, err := r.Get(ctx, "shape1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRoom_ConcurrentPushesConverge(t *testing.T) {
	ctx := context.Background()
	r := newTestRoom(t)

	_, err := r.Push(ctx, "setup", mutation(t, models.MutatorCreateRecord, shape("shape1", 0)))
	require.NoError(t, err)

	sub, err := r.Subscribe(ctx, "observer")
	require.NoError(t, err)
	defer sub.Close()

	replica := make(map[string]models.Record)
	for _, rec := range sub.Records {
		replica[rec.ID()] = rec
	}

	const clients, perClient = 4, 20
	var wg sync.WaitGroup
	for c := range clients {
		clientID := string(rune('a' + c))
		wg.Go(func() {
			for range perClient {
				_, err := r.Push(ctx, clientID, mutation(t, models.MutatorUpdateShape, models.ShapeDelta{ID: "shape1", DX: models.Float(1)}))
				assert.NoError(t, err)
			}
		})
	}
	wg.Wait()

	var last int64
	for range clients * perClient {
		poke := <-sub.Pokes
		assert.Greater(t, poke.Version, last)
		last = poke.Version
		for _, d := range poke.Diffs {
			if d.Op == models.DiffDel {
				delete(replica, d.Key)
				continue
			}
			replica[d.Key] = d.NewValue
		}
	}

	records, _, err := r.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Equal(replica["shape1"]))
	assert.Equal(t, float64(clients*perClient), records[0].Geometry().X)
}

func TestRoom_SlowWatcherIsDropped(t *testing.T) {
	ctx := context.Background()
	r := newTestRoom(t)

	sub, err := r.Subscribe(ctx, "slow")
	require.NoError(t, err)

	for i := range WatchBuffer + 1 {
		_, err := r.Push(ctx, "c1", mutation(t, models.MutatorCreateRecord, shape("shape1", float64(i+1))))
		require.NoError(t, err)
	}

	n := 0
	for range sub.Pokes {
		n++
	}
	assert.Equal(t, WatchBuffer, n)

	// повторное закрытие безопасно
	sub.Close()
}

func TestRoom_RosterAndDisconnect(t *testing.T) {
	ctx := context.Background()
	r := newTestRoom(t)

	roster, stop := r.WatchRoster()
	defer stop()
	assert.Empty(t, <-roster)

	require.NoError(t, r.Connect("c1"))
	assert.Equal(t, []string{"c1"}, <-roster)
	require.NoError(t, r.Connect("c2"))
	assert.Equal(t, []string{"c1", "c2"}, <-roster)

	// вторая вкладка того же клиента не меняет список
	require.NoError(t, r.Connect("c1"))
	require.NoError(t, r.Disconnect(ctx, "c1"))
	assert.Equal(t, []string{"c1", "c2"}, r.Roster())

	presence := models.NewPresence(models.PresenceID("c1"), models.UserPreferences{ID: "c1"})
	_, err := r.Push(ctx, "c1", mutation(t, models.MutatorCreateRecord, presence))
	require.NoError(t, err)

	sub, err := r.Subscribe(ctx, "c2")
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, r.Disconnect(ctx, "c1"))
	assert.Equal(t, []string{"c2"}, <-roster)

	poke := <-sub.Pokes
	require.Len(t, poke.Diffs, 1)
	assert.Equal(t, models.Diff{Op: models.DiffDel, Key: models.PresenceID("c1")}, poke.Diffs[0])

	// неизвестный клиент
	require.NoError(t, r.Disconnect(ctx, "ghost"))
}

func TestRoom_Close(t *testing.T) {
	ctx := context.Background()
	r := newTestRoom(t)

	sub, err := r.Subscribe(ctx, "c1")
	require.NoError(t, err)
	roster, stop := r.WatchRoster()
	<-roster

	r.Close()

	_, ok := <-sub.Pokes
	assert.False(t, ok)
	_, ok = <-roster
	assert.False(t, ok)
	stop()
	sub.Close()

	_, err = r.Push(ctx, "c1", mutation(t, models.MutatorCreateRecord, shape("s", 0)))
	assert.ErrorIs(t, err, ErrRoomClosed)
	_, err = r.Subscribe(ctx, "c1")
	assert.ErrorIs(t, err, ErrRoomClosed)
	assert.ErrorIs(t, r.Connect("c1"), ErrRoomClosed)
}

func TestManager_ReopenRestoresVersion(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()

	m := NewManager(backend, testLogger())
	r, err := m.Room(ctx, "room-1")
	require.NoError(t, err)

	same, err := m.Room(ctx, "room-1")
	require.NoError(t, err)
	assert.Same(t, r, same)

	_, err = r.Push(ctx, "c1", mutation(t, models.MutatorCreateRecord, shape("shape1", 0)))
	require.NoError(t, err)
	m.Close()

	_, err = m.Room(ctx, "room-1")
	assert.ErrorIs(t, err, ErrRoomClosed)

	m2 := NewManager(backend, testLogger())
	defer m2.Close()
	r2, err := m2.Room(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), r2.Version())

	_, err = m2.Room(ctx, "")
	assert.Error(t, err)
}
