// Package storage describes what the client keeps between runs.
// The document replica itself is never persisted; only the identity the
// client joins rooms with is.
package storage

import (
	"context"
	"time"
)

// IdentityStorage хранит идентичность клиента для каждого сервера
type IdentityStorage interface {
	// SaveIdentity stores the identity used with serverURL
	SaveIdentity(ctx context.Context, serverURL string, id *Identity) error

	// GetIdentity returns ErrIdentityNotFound if nothing is stored for serverURL
	GetIdentity(ctx context.Context, serverURL string) (*Identity, error)

	// DeleteIdentity removes the identity of serverURL
	DeleteIdentity(ctx context.Context, serverURL string) error
}

// Identity - пользователь и его настройки присутствия
type Identity struct {
	UserID      string `json:"user_id"`
	AccessToken string `json:"access_token,omitempty"`
	Name        string `json:"name,omitempty"`
	Color       string `json:"color,omitempty"`
	// ExpiresAt - время истечения токена, unix seconds
	ExpiresAt int64 `json:"expires_at,omitempty"`
}

// TokenValid reports whether the stored token is still usable at now with
// margin to spare.
func (i *Identity) TokenValid(now time.Time, margin time.Duration) bool {
	if i.AccessToken == "" {
		return false
	}
	return now.Add(margin).Before(time.Unix(i.ExpiresAt, 0))
}
