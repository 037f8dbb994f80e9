package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/sketchsync/internal/server/storage"
)

type tx struct {
	tx     *sql.Tx
	roomID string
	done   bool
}

// Get retrieves a single record value by key
func (t *tx) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	if t.done {
		return nil, false, storage.ErrTxDone
	}

	query := `SELECT value FROM room_records WHERE room_id = ? AND key = ?`

	var value []byte
	err := t.tx.QueryRowContext(ctx, query, t.roomID, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get record: %w", err)
	}

	return json.RawMessage(value), true, nil
}

// Put creates or replaces a record value
func (t *tx) Put(ctx context.Context, key string, value json.RawMessage) error {
	if t.done {
		return storage.ErrTxDone
	}

	query := `
		INSERT INTO room_records (room_id, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (room_id, key) DO UPDATE
		SET value = excluded.value, updated_at = excluded.updated_at
	`

	if _, err := t.tx.ExecContext(ctx, query, t.roomID, key, []byte(value), time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to put record: %w", err)
	}

	return nil
}

// Delete removes a record; absent keys are ignored
func (t *tx) Delete(ctx context.Context, key string) error {
	if t.done {
		return storage.ErrTxDone
	}

	query := `DELETE FROM room_records WHERE room_id = ? AND key = ?`

	if _, err := t.tx.ExecContext(ctx, query, t.roomID, key); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}

	return nil
}

// Scan returns every record of the room ordered by key
func (t *tx) Scan(ctx context.Context) (kvs []storage.KV, err error) {
	if t.done {
		return nil, storage.ErrTxDone
	}

	query := `SELECT key, value FROM room_records WHERE room_id = ? ORDER BY key ASC`

	rows, err := t.tx.QueryContext(ctx, query, t.roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	for rows.Next() {
		var kv storage.KV
		var value []byte
		if err := rows.Scan(&kv.Key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		kv.Value = json.RawMessage(value)
		kvs = append(kvs, kv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return kvs, nil
}

// Version returns the last committed log version of the room
func (t *tx) Version(ctx context.Context) (int64, error) {
	if t.done {
		return 0, storage.ErrTxDone
	}

	var version int64
	err := t.tx.QueryRowContext(ctx, `SELECT version FROM rooms WHERE room_id = ?`, t.roomID).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get room version: %w", err)
	}

	return version, nil
}

// SetVersion stores the log version committed by this transaction
func (t *tx) SetVersion(ctx context.Context, version int64) error {
	if t.done {
		return storage.ErrTxDone
	}

	query := `
		INSERT INTO rooms (room_id, version, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (room_id) DO UPDATE
		SET version = excluded.version, updated_at = excluded.updated_at
	`

	if _, err := t.tx.ExecContext(ctx, query, t.roomID, version, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to set room version: %w", err)
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

	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to rollback: %w", err)
	}
	return nil
}
