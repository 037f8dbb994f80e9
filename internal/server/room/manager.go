package room

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/iudanet/sketchsync/internal/server/storage"
)

// Manager opens rooms on demand over one storage backend.
type Manager struct {
	backend storage.Backend
	logger  *slog.Logger
	rooms   map[string]*Room
	mu      sync.Mutex
	closed  bool
}

// NewManager creates a room manager.
func NewManager(backend storage.Backend, logger *slog.Logger) *Manager {
	return &Manager{
		backend: backend,
		logger:  logger,
		rooms:   make(map[string]*Room),
	}
}

// Room returns the room with the given id, opening it on first use.
func (m *Manager) Room(ctx context.Context, id string) (*Room, error) {
	if id == "" {
		return nil, fmt.Errorf("empty room id")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrRoomClosed
	}
	if r, ok := m.rooms[id]; ok {
		return r, nil
	}

	r, err := newRoom(ctx, id, m.backend, m.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open room %s: %w", id, err)
	}
	m.rooms[id] = r
	m.logger.Info("Room opened", "room_id", id, "version", r.Version())

	return r, nil
}

// Close closes every open room. The backend is owned by the caller.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	for id, r := range m.rooms {
		r.Close()
		delete(m.rooms, id)
	}
}
