package boltdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/sketchsync/internal/client/storage"
)

var _ storage.IdentityStorage = (*Storage)(nil)

// SaveIdentity stores the identity used with serverURL
func (s *Storage) SaveIdentity(ctx context.Context, serverURL string, id *storage.Identity) error {
	data, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("failed to marshal identity: %w", err)
	}

	return s.update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketIdentities).Put([]byte(serverURL), data); err != nil {
			return fmt.Errorf("failed to save identity: %w", err)
		}
		return nil
	})
}

// GetIdentity retrieves the identity stored for serverURL
func (s *Storage) GetIdentity(ctx context.Context, serverURL string) (*storage.Identity, error) {
	var id *storage.Identity

	err := s.view(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketIdentities).Get([]byte(serverURL))
		if data == nil {
			return storage.ErrIdentityNotFound
		}

		id = &storage.Identity{}
		if err := json.Unmarshal(data, id); err != nil {
			return fmt.Errorf("failed to unmarshal identity: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return id, nil
}

// DeleteIdentity removes the identity of serverURL
func (s *Storage) DeleteIdentity(ctx context.Context, serverURL string) error {
	return s.update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketIdentities)
		if bucket.Get([]byte(serverURL)) == nil {
			return storage.ErrIdentityNotFound
		}
		return bucket.Delete([]byte(serverURL))
	})
}

func (s *Storage) update(fn func(tx *bbolt.Tx) error) error {
	return closedErr(s.db.Update(fn))
}

func (s *Storage) view(fn func(tx *bbolt.Tx) error) error {
	return closedErr(s.db.View(fn))
}

func closedErr(err error) error {
	if errors.Is(err, bbolt.ErrDatabaseNotOpen) {
		return storage.ErrStorageClosed
	}
	return err
}
