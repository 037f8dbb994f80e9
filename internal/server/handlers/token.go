package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/iudanet/sketchsync/internal/validation"
	"github.com/iudanet/sketchsync/pkg/api"
)

// TokenHandler выдает гостевые токены доступа к комнатам
type TokenHandler struct {
	logger    *slog.Logger
	jwtConfig JWTConfig
}

// NewTokenHandler создает новый handler для выдачи токенов
func NewTokenHandler(logger *slog.Logger, jwtConfig JWTConfig) *TokenHandler {
	return &TokenHandler{
		logger:    logger,
		jwtConfig: jwtConfig,
	}
}

// IssueToken обрабатывает POST /api/v1/auth/token
// Без user_id генерируется новый id пользователя
func (h *TokenHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode token request", slog.Any("error", err))
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.UserID == "" {
		req.UserID = uuid.New().String()
	}
	if err := validation.ValidateClientID(req.UserID); err != nil {
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidateDisplayName(req.Username); err != nil {
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}

	token, expiresIn, err := GenerateAccessToken(h.jwtConfig, req.UserID, req.Username)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate access token", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "access token issued", slog.String("user_id", req.UserID))
	sendJSON(h.logger, w, api.TokenResponse{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		UserID:      req.UserID,
	}, http.StatusOK)
}
