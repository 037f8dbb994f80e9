package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iudanet/sketchsync/internal/server/storage"
	"github.com/iudanet/sketchsync/internal/server/storage/storagetest"
)

func TestMemoryBackend(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Backend {
		return New()
	})
}

func TestMemoryBackend_Closed(t *testing.T) {
	s := New()
	assert.NoError(t, s.Close())

	_, err := s.Begin(context.Background(), "room-1")
	assert.ErrorIs(t, err, storage.ErrBackendClosed)
}
