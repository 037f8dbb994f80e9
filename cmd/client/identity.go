package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/sketchsync/internal/client/api"
	"github.com/iudanet/sketchsync/internal/client/storage"
	"github.com/iudanet/sketchsync/internal/client/transport"
	"github.com/iudanet/sketchsync/internal/config"
	pkgapi "github.com/iudanet/sketchsync/pkg/api"
)

// tokenMargin - токен, истекающий раньше, запрашивается заново
const tokenMargin = time.Minute

// tokenIssuer выдает токены доступа
type tokenIssuer interface {
	IssueToken(ctx context.Context, req pkgapi.TokenRequest) (*pkgapi.TokenResponse, error)
}

// resolveIdentity объединяет сохраненную идентичность с флагами и при
// необходимости получает новый токен. Результат сохраняется.
func resolveIdentity(ctx context.Context, cfg *config.Client, issuer tokenIssuer, ids storage.IdentityStorage, logger *slog.Logger) (*storage.Identity, error) {
	identity, err := ids.GetIdentity(ctx, cfg.ServerURL)
	switch {
	case errors.Is(err, storage.ErrIdentityNotFound):
		identity = &storage.Identity{}
	case err != nil:
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}

	if cfg.UserID != "" && cfg.UserID != identity.UserID {
		// токен выдан другому пользователю
		identity = &storage.Identity{UserID: cfg.UserID, Name: identity.Name, Color: identity.Color}
	}
	if cfg.Name != "" {
		identity.Name = cfg.Name
	}
	if cfg.Color != "" {
		identity.Color = cfg.Color
	}

	switch {
	case cfg.Token != "":
		identity.AccessToken, identity.ExpiresAt = cfg.Token, 0
	case identity.TokenValid(time.Now(), tokenMargin):
	default:
		resp, err := issuer.IssueToken(ctx, pkgapi.TokenRequest{UserID: identity.UserID, Username: identity.Name})
		if err != nil {
			// сервер без аутентификации не выдает токены
			logger.Warn("No access token, connecting anonymously", "error", err)
			identity.AccessToken, identity.ExpiresAt = "", 0
		} else {
			identity.UserID = resp.UserID
			identity.AccessToken = resp.AccessToken
			identity.ExpiresAt = time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second).Unix()
		}
	}

	if identity.UserID == "" {
		identity.UserID = uuid.New().String()
	}

	// токен из флага не сохраняется
	saved := *identity
	if cfg.Token != "" {
		saved.AccessToken, saved.ExpiresAt = "", 0
	}
	if err := ids.SaveIdentity(ctx, cfg.ServerURL, &saved); err != nil {
		return nil, fmt.Errorf("failed to save identity: %w", err)
	}

	logger.Debug("Identity resolved", "user_id", identity.UserID, "token", identity.AccessToken != "")
	return identity, nil
}

// connectionConfig описывает одно подключение к комнате. Идентификатор клиента
// уникален для каждого подключения: два процесса одного пользователя иначе
// отбрасывали бы мутации друг друга как повторы.
func connectionConfig(roomURL string, identity *storage.Identity) transport.WSConfig {
	return transport.WSConfig{
		URL:      roomURL,
		Token:    identity.AccessToken,
		ClientID: uuid.New().String(),
	}
}

var _ tokenIssuer = (*api.Client)(nil)
