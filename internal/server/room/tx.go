package room

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/iudanet/sketchsync/internal/models"
	"github.com/iudanet/sketchsync/internal/mutators"
	"github.com/iudanet/sketchsync/internal/server/storage"
)

// touched - состояние ключа до первой записи в транзакции
type touched struct {
	prev    models.Record
	existed bool
}

// writeTx adapts a storage transaction to the mutator interface and records
// which keys were written so the commit can be turned into diffs.
type writeTx struct {
	tx       storage.Tx
	touched  map[string]touched
	clientID string
	order    []string
}

var _ mutators.WriteTx = (*writeTx)(nil)

func newWriteTx(tx storage.Tx, clientID string) *writeTx {
	return &writeTx{
		tx:       tx,
		clientID: clientID,
		touched:  make(map[string]touched),
	}
}

func (w *writeTx) ClientID() string {
	return w.clientID
}

func (w *writeTx) Get(ctx context.Context, key string) (models.Record, bool, error) {
	data, ok, err := w.tx.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	r, err := models.DecodeRecord(data)
	if err != nil {
		return nil, false, fmt.Errorf("record %s: %w", key, err)
	}
	return r, true, nil
}

func (w *writeTx) Scan(ctx context.Context) ([]models.Record, error) {
	kvs, err := w.tx.Scan(ctx)
	if err != nil {
		return nil, err
	}
	return decodeAll(kvs)
}

func (w *writeTx) Set(ctx context.Context, key string, value models.Record) error {
	if err := w.touch(ctx, key); err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal record %s: %w", key, err)
	}
	return w.tx.Put(ctx, key, data)
}

func (w *writeTx) Del(ctx context.Context, key string) error {
	if err := w.touch(ctx, key); err != nil {
		return err
	}
	return w.tx.Delete(ctx, key)
}

// touch запоминает значение ключа до первого изменения в транзакции
func (w *writeTx) touch(ctx context.Context, key string) error {
	if _, ok := w.touched[key]; ok {
		return nil
	}
	prev, existed, err := w.Get(ctx, key)
	if err != nil {
		return err
	}
	w.touched[key] = touched{prev: prev, existed: existed}
	w.order = append(w.order, key)
	return nil
}

// diffs compares every touched key with its value before the transaction.
// Keys written back to their original value produce nothing.
func (w *writeTx) diffs(ctx context.Context) ([]models.Diff, error) {
	var out []models.Diff
	for _, key := range w.order {
		before := w.touched[key]
		next, exists, err := w.Get(ctx, key)
		if err != nil {
			return nil, err
		}

		switch {
		case before.existed && !exists:
			out = append(out, models.Diff{Op: models.DiffDel, Key: key})
		case !before.existed && exists:
			out = append(out, models.Diff{Op: models.DiffAdd, Key: key, NewValue: next})
		case exists && !before.prev.Equal(next):
			out = append(out, models.Diff{Op: models.DiffChange, Key: key, NewValue: next})
		}
	}
	return out, nil
}

func decodeAll(kvs []storage.KV) ([]models.Record, error) {
	out := make([]models.Record, 0, len(kvs))
	for _, kv := range kvs {
		r, err := models.DecodeRecord(kv.Value)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", kv.Key, err)
		}
		out = append(out, r)
	}
	return out, nil
}
