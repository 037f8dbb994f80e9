package boltdb

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/sketchsync/internal/server/storage"
)

var (
	// BoltDB bucket names
	bucketRooms   = []byte("rooms")
	bucketRecords = []byte("records")
	bucketMeta    = []byte("meta")

	keyVersion = []byte("version")
)

// Storage represents BoltDB storage implementation.
// Layout: rooms/<room id>/{records,meta}.
type Storage struct {
	db *bbolt.DB
}

// New creates a new BoltDB storage instance
// dbPath is the path to the BoltDB database file
func New(ctx context.Context, dbPath string) (*Storage, error) {
	// Открываем BoltDB
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	s := &Storage{db: db}

	// Инициализируем buckets
	if err := s.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// initBuckets создает корневой bucket комнат если он не существует
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketRooms); err != nil {
			return fmt.Errorf("failed to create rooms bucket: %w", err)
		}
		return nil
	})
}

// Begin starts a writable bolt transaction.
// Bolt allows one writer at a time, transactions of different rooms serialize.
func (s *Storage) Begin(ctx context.Context, roomID string) (storage.Tx, error) {
	if s.db == nil {
		return nil, storage.ErrBackendClosed
	}

	boltTx, err := s.db.Begin(true)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &tx{tx: boltTx, roomID: []byte(roomID)}, nil
}
