package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/sketchsync/internal/client/presence"
	clientsignal "github.com/iudanet/sketchsync/internal/client/signal"
	"github.com/iudanet/sketchsync/internal/client/store"
	clientsync "github.com/iudanet/sketchsync/internal/client/sync"
	"github.com/iudanet/sketchsync/internal/client/transport"
	"github.com/iudanet/sketchsync/internal/models"
	"github.com/iudanet/sketchsync/internal/server/room"
	"github.com/iudanet/sketchsync/internal/server/storage/memory"
)

func joinLocal(t *testing.T, r *room.Room, clientID string) (*clientsync.Engine, *presence.Reconciler) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	conn, err := transport.NewLocal(r, clientID, logger)
	require.NoError(t, err)

	engine := clientsync.New(store.New(), conn, logger)
	t.Cleanup(func() { _ = engine.Close() })
	require.NoError(t, engine.Start(context.Background()))

	reconciler := presence.New(engine, clientsignal.New(models.UserPreferences{ID: "alice", Name: "Alice"}), logger)
	reconciler.Start()
	return engine, reconciler
}

func TestOthersCount(t *testing.T) {
	m := room.NewManager(memory.New(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(m.Close)
	r, err := m.Room(context.Background(), "room-1")
	require.NoError(t, err)

	// один пользователь, два подключения
	first, firstPresence := joinLocal(t, r, "conn-1")
	joinLocal(t, r, "conn-2")

	require.Eventually(t, func() bool {
		n, err := othersCount(first, firstPresence)
		return err == nil && n == 1
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, first.Close())
	_, err = othersCount(first, firstPresence)
	assert.ErrorIs(t, err, clientsync.ErrEngineClosed)
}
