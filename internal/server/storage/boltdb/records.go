package boltdb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/sketchsync/internal/server/storage"
)

type tx struct {
	tx     *bbolt.Tx
	roomID []byte
	done   bool
}

// room возвращает bucket комнаты; create=false не создает отсутствующий bucket
func (t *tx) room(create bool) (*bbolt.Bucket, error) {
	rooms := t.tx.Bucket(bucketRooms)
	if rooms == nil {
		return nil, fmt.Errorf("rooms bucket not found")
	}

	if !create {
		return rooms.Bucket(t.roomID), nil
	}

	room, err := rooms.CreateBucketIfNotExists(t.roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to create room bucket: %w", err)
	}
	for _, name := range [][]byte{bucketRecords, bucketMeta} {
		if _, err := room.CreateBucketIfNotExists(name); err != nil {
			return nil, fmt.Errorf("failed to create %s bucket: %w", name, err)
		}
	}
	return room, nil
}

// Get retrieves a record value by key
func (t *tx) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	if t.done {
		return nil, false, storage.ErrTxDone
	}

	room, err := t.room(false)
	if err != nil || room == nil {
		return nil, false, err
	}

	data := room.Bucket(bucketRecords).Get([]byte(key))
	if data == nil {
		return nil, false, nil
	}

	// Значение валидно только внутри транзакции - копируем
	value := make(json.RawMessage, len(data))
	copy(value, data)
	return value, true, nil
}

// Put stores a record value
func (t *tx) Put(ctx context.Context, key string, value json.RawMessage) error {
	if t.done {
		return storage.ErrTxDone
	}

	room, err := t.room(true)
	if err != nil {
		return err
	}

	if err := room.Bucket(bucketRecords).Put([]byte(key), value); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

// Delete removes a record value
func (t *tx) Delete(ctx context.Context, key string) error {
	if t.done {
		return storage.ErrTxDone
	}

	room, err := t.room(false)
	if err != nil || room == nil {
		return err
	}

	if err := room.Bucket(bucketRecords).Delete([]byte(key)); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

// Scan returns all records of the room; bolt keys are already sorted
func (t *tx) Scan(ctx context.Context) ([]storage.KV, error) {
	if t.done {
		return nil, storage.ErrTxDone
	}

	room, err := t.room(false)
	if err != nil || room == nil {
		return nil, err
	}

	var kvs []storage.KV
	err = room.Bucket(bucketRecords).ForEach(func(k, v []byte) error {
		value := make(json.RawMessage, len(v))
		copy(value, v)
		kvs = append(kvs, storage.KV{Key: string(k), Value: value})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan records: %w", err)
	}

	return kvs, nil
}

// Version returns the last committed log version of the room
func (t *tx) Version(ctx context.Context) (int64, error) {
	if t.done {
		return 0, storage.ErrTxDone
	}

	room, err := t.room(false)
	if err != nil || room == nil {
		return 0, err
	}

	versionBytes := room.Bucket(bucketMeta).Get(keyVersion)
	if versionBytes == nil {
		return 0, nil
	}

	// Конвертируем bytes в int64
	return int64(binary.BigEndian.Uint64(versionBytes)), nil
}

// SetVersion stores the log version committed by this transaction
func (t *tx) SetVersion(ctx context.Context, version int64) error {
	if t.done {
		return storage.ErrTxDone
	}

	room, err := t.room(true)
	if err != nil {
		return err
	}

	// Конвертируем int64 в bytes
	versionBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(versionBytes, uint64(version))

	if err := room.Bucket(bucketMeta).Put(keyVersion, versionBytes); err != nil {
		return fmt.Errorf("failed to save version: %w", err)
	}
	return nil
}

func (t *tx) Commit() error {
	if t.done {
		return storage.ErrTxDone
	}
	t.done = true

	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func (t *tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true

	if err := t.tx.Rollback(); err != nil && !errors.Is(err, bbolt.ErrTxClosed) {
		return fmt.Errorf("failed to rollback: %w", err)
	}
	return nil
}
