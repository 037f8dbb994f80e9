// Package storagetest holds the behaviour every storage backend must satisfy.
package storagetest

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/sketchsync/internal/server/storage"
)

// Run executes the backend conformance suite. newBackend must return a fresh,
// empty backend; the suite closes it.
func Run(t *testing.T, newBackend func(t *testing.T) storage.Backend) {
	t.Run("put and get", func(t *testing.T) {
		b := newBackend(t)
		defer b.Close()
		ctx := context.Background()

		tx, err := b.Begin(ctx, "room-1")
		require.NoError(t, err)
		require.NoError(t, tx.Put(ctx, "shape:1", json.RawMessage(`{"id":"shape:1"}`)))

		// Запись видна внутри транзакции до коммита
		v, ok, err := tx.Get(ctx, "shape:1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.JSONEq(t, `{"id":"shape:1"}`, string(v))
		require.NoError(t, tx.Commit())

		tx, err = b.Begin(ctx, "room-1")
		require.NoError(t, err)
		defer tx.Rollback()

		v, ok, err = tx.Get(ctx, "shape:1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.JSONEq(t, `{"id":"shape:1"}`, string(v))

		_, ok, err = tx.Get(ctx, "shape:missing")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("rollback discards writes", func(t *testing.T) {
		b := newBackend(t)
		defer b.Close()
		ctx := context.Background()

		tx, err := b.Begin(ctx, "room-1")
		require.NoError(t, err)
		require.NoError(t, tx.Put(ctx, "a", json.RawMessage(`{"id":"a"}`)))
		require.NoError(t, tx.SetVersion(ctx, 7))
		require.NoError(t, tx.Rollback())

		tx, err = b.Begin(ctx, "room-1")
		require.NoError(t, err)
		defer tx.Rollback()

		_, ok, err := tx.Get(ctx, "a")
		require.NoError(t, err)
		assert.False(t, ok)

		version, err := tx.Version(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), version)
	})

	t.Run("delete and scan order", func(t *testing.T) {
		b := newBackend(t)
		defer b.Close()
		ctx := context.Background()

		tx, err := b.Begin(ctx, "room-1")
		require.NoError(t, err)
		for _, key := range []string{"c", "a", "b"} {
			require.NoError(t, tx.Put(ctx, key, json.RawMessage(`{"id":"`+key+`"}`)))
		}
		require.NoError(t, tx.Commit())

		tx, err = b.Begin(ctx, "room-1")
		require.NoError(t, err)
		require.NoError(t, tx.Delete(ctx, "b"))
		// Удаление отсутствующего ключа - не ошибка
		require.NoError(t, tx.Delete(ctx, "missing"))
		require.NoError(t, tx.Commit())

		tx, err = b.Begin(ctx, "room-1")
		require.NoError(t, err)
		defer tx.Rollback()

		kvs, err := tx.Scan(ctx)
		require.NoError(t, err)
		require.Len(t, kvs, 2)
		assert.Equal(t, "a", kvs[0].Key)
		assert.Equal(t, "c", kvs[1].Key)
	})

	t.Run("rooms are isolated", func(t *testing.T) {
		b := newBackend(t)
		defer b.Close()
		ctx := context.Background()

		tx, err := b.Begin(ctx, "room-1")
		require.NoError(t, err)
		require.NoError(t, tx.Put(ctx, "a", json.RawMessage(`{"id":"a"}`)))
		require.NoError(t, tx.SetVersion(ctx, 3))
		require.NoError(t, tx.Commit())

		tx, err = b.Begin(ctx, "room-2")
		require.NoError(t, err)
		defer tx.Rollback()

		kvs, err := tx.Scan(ctx)
		require.NoError(t, err)
		assert.Empty(t, kvs)

		version, err := tx.Version(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), version)
	})

	t.Run("version survives commit", func(t *testing.T) {
		b := newBackend(t)
		defer b.Close()
		ctx := context.Background()

		for _, v := range []int64{1, 2, 5} {
			tx, err := b.Begin(ctx, "room-1")
			require.NoError(t, err)
			require.NoError(t, tx.SetVersion(ctx, v))
			require.NoError(t, tx.Commit())
		}

		tx, err := b.Begin(ctx, "room-1")
		require.NoError(t, err)
		defer tx.Rollback()

		version, err := tx.Version(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(5), version)
	})

	t.Run("finished transaction rejects use", func(t *testing.T) {
		b := newBackend(t)
		defer b.Close()
		ctx := context.Background()

		tx, err := b.Begin(ctx, "room-1")
		require.NoError(t, err)
		require.NoError(t, tx.Commit())

		assert.ErrorIs(t, tx.Put(ctx, "a", json.RawMessage(`{}`)), storage.ErrTxDone)
		assert.ErrorIs(t, tx.Commit(), storage.ErrTxDone)
		assert.NoError(t, tx.Rollback())
	})
}
