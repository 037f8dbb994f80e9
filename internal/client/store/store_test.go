package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/sketchsync/internal/models"
)

func shape(id string, x float64) models.Record {
	return models.NewShape(id, models.Geometry{X: x, W: 10, H: 10, Opacity: 1}, nil)
}

func record(changes *[]Change) Listener {
	return func(c Change) {
		*changes = append(*changes, c)
	}
}

func TestStore_PutGetRemove(t *testing.T) {
	s := New()

	input := shape("shape1", 1)
	require.NoError(t, s.Put(OriginUser, input))

	// хранилище хранит копию
	input[models.FieldX] = 50.0
	got, ok := s.Get("shape1")
	require.True(t, ok)
	assert.Equal(t, 1.0, got.Geometry().X)

	got[models.FieldX] = 70.0
	again, _ := s.Get("shape1")
	assert.Equal(t, 1.0, again.Geometry().X)

	require.NoError(t, s.Remove(OriginUser, "shape1", "missing"))
	_, ok = s.Get("shape1")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestStore_InvalidInput(t *testing.T) {
	s := New()

	assert.ErrorIs(t, s.Put("", shape("a", 0)), ErrInvalidOrigin)
	assert.ErrorIs(t, s.Put(OriginUser, models.Record{"id": "a"}), models.ErrInvalidRecord)
	assert.ErrorIs(t, s.Update(OriginUser, "nope", func(r models.Record) models.Record { return r }), ErrNotFound)
}

func TestStore_BatchAtomicity(t *testing.T) {
	s := New()
	require.NoError(t, s.Put(OriginRemote, shape("y", 0)))

	var changes []Change
	stop := s.Listen(record(&changes), ListenOptions{})
	defer stop()

	err := s.Transact(OriginUser, func(tx *Tx) error {
		if err := tx.Put(shape("x", 1)); err != nil {
			return err
		}
		tx.Remove("y")
		return nil
	})
	require.NoError(t, err)

	require.Len(t, changes, 1)
	c := changes[0]
	assert.Equal(t, OriginUser, c.Origin)
	assert.Contains(t, c.Diff.Added, "x")
	assert.Equal(t, []string{"y"}, c.Diff.Removed)
	assert.Equal(t, "y", c.Previous["y"].ID())
}

func TestStore_TransactionNetEffect(t *testing.T) {
	s := New()
	require.NoError(t, s.Put(OriginRemote, shape("a", 0)))

	var changes []Change
	defer s.Listen(record(&changes), ListenOptions{})()

	err := s.Transact(OriginUser, func(tx *Tx) error {
		// добавлена и удалена в одной транзакции
		_ = tx.Put(shape("tmp", 0))
		tx.Remove("tmp")

		_ = tx.Put(shape("a", 5))
		_ = tx.Put(shape("a", 7))
		return nil
	})
	require.NoError(t, err)

	require.Len(t, changes, 1)
	assert.Empty(t, changes[0].Diff.Added)
	assert.Empty(t, changes[0].Diff.Removed)
	require.Contains(t, changes[0].Diff.Updated, "a")
	assert.Equal(t, 0.0, changes[0].Diff.Updated["a"].Prev.Geometry().X)
	assert.Equal(t, 7.0, changes[0].Diff.Updated["a"].Next.Geometry().X)

	// запись того же значения не порождает уведомления
	require.NoError(t, s.Put(OriginUser, shape("a", 7)))
	assert.Len(t, changes, 1)
}

func TestStore_RollbackOnError(t *testing.T) {
	s := New()
	require.NoError(t, s.Put(OriginRemote, shape("a", 0)))

	var changes []Change
	defer s.Listen(record(&changes), ListenOptions{})()

	errBoom := errors.New("boom")
	err := s.Transact(OriginUser, func(tx *Tx) error {
		_ = tx.Put(shape("b", 0))
		_ = tx.Put(shape("a", 9))
		tx.Remove("a")
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)

	assert.Empty(t, changes)
	a, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, 0.0, a.Geometry().X)
	_, ok = s.Get("b")
	assert.False(t, ok)
}

func TestStore_ListenFilters(t *testing.T) {
	s := New()

	var userDocs, remoteAll, presence []Change
	defer s.Listen(record(&userDocs), ListenOptions{Source: OriginUser, Scope: ScopeDocument})()
	defer s.Listen(record(&remoteAll), ListenOptions{Source: OriginRemote})()
	defer s.Listen(record(&presence), ListenOptions{Scope: ScopePresence})()

	me := models.NewPresence(models.PresenceID("me"), models.UserPreferences{ID: "me"})

	require.NoError(t, s.Put(OriginUser, shape("s1", 0), me))
	require.NoError(t, s.Put(OriginRemote, shape("s2", 0)))
	require.NoError(t, s.Remove(OriginUser, me.ID()))

	require.Len(t, userDocs, 1)
	assert.Len(t, userDocs[0].Diff.Added, 1)
	assert.Contains(t, userDocs[0].Diff.Added, "s1")

	require.Len(t, remoteAll, 1)
	assert.Contains(t, remoteAll[0].Diff.Added, "s2")

	require.Len(t, presence, 2)
	assert.Contains(t, presence[0].Diff.Added, me.ID())
	assert.Equal(t, []string{me.ID()}, presence[1].Diff.Removed)
}

func TestStore_Unsubscribe(t *testing.T) {
	s := New()

	var changes []Change
	stop := s.Listen(record(&changes), ListenOptions{})
	assert.Equal(t, 1, s.Listeners())

	require.NoError(t, s.Put(OriginUser, shape("a", 0)))
	stop()
	assert.Equal(t, 0, s.Listeners())

	require.NoError(t, s.Put(OriginUser, shape("b", 0)))
	assert.Len(t, changes, 1)
}

func TestStore_NestedTransactionsAreOrdered(t *testing.T) {
	s := New()

	var seen []string
	defer s.Listen(func(c Change) {
		for _, id := range models.SortedIDs(c.Diff.Added) {
			seen = append(seen, id)
		}
		// слушатель пишет в хранилище во время доставки
		if _, ok := c.Diff.Added["first"]; ok {
			require.NoError(t, s.Put(OriginRemote, shape("second", 0)))
		}
	}, ListenOptions{})()

	var late []string
	defer s.Listen(func(c Change) {
		late = append(late, models.SortedIDs(c.Diff.Added)...)
	}, ListenOptions{})()

	require.NoError(t, s.Put(OriginUser, shape("first", 0)))

	assert.Equal(t, []string{"first", "second"}, seen)
	assert.Equal(t, []string{"first", "second"}, late)
}

func TestStore_QueryAndUpdate(t *testing.T) {
	s := New()
	require.NoError(t, s.Put(OriginUser, shape("b", 0), shape("a", 0), models.Record{"id": "p", "typeName": models.TypePage}))

	shapes := s.Query(func(r models.Record) bool { return r.IsShape() })
	require.Len(t, shapes, 2)
	assert.Equal(t, "a", shapes[0].ID())
	assert.Len(t, s.All(), 3)

	require.NoError(t, s.Update(OriginUser, "a", func(r models.Record) models.Record {
		r[models.FieldX] = 3.0
		return r
	}))
	a, _ := s.Get("a")
	assert.Equal(t, 3.0, a.Geometry().X)
}

func TestInScope(t *testing.T) {
	assert.True(t, InScope("shape1", ScopeDocument))
	assert.False(t, InScope(models.PresenceID("c"), ScopeDocument))
	assert.True(t, InScope(models.PresenceID("c"), ScopePresence))
	assert.True(t, InScope("shape1", ScopeAll))
}
