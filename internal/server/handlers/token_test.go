package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/sketchsync/pkg/api"
)

func testJWTConfig() JWTConfig {
	return JWTConfig{
		Secret:         []byte("test-secret"),
		AccessTokenTTL: 15 * time.Minute,
	}
}

func TestTokenHandler_IssueToken(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedUserID string
	}{
		{
			name:           "explicit user",
			body:           `{"user_id":"alice","username":"Alice"}`,
			expectedStatus: http.StatusOK,
			expectedUserID: "alice",
		},
		{
			name:           "generated user id",
			body:           `{"username":"Guest"}`,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "invalid json",
			body:           `{`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid user id",
			body:           `{"user_id":"a b"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid username",
			body:           `{"user_id":"alice","username":"` + strings.Repeat("x", 65) + `"}`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testJWTConfig()
			h := NewTokenHandler(setupTestLogger(), cfg)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()
			h.IssueToken(w, req)

			require.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			if tt.expectedStatus != http.StatusOK {
				var resp api.ErrorResponse
				require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
				assert.Equal(t, http.StatusText(tt.expectedStatus), resp.Error)
				assert.NotEmpty(t, resp.Message)
				return
			}

			var resp api.TokenResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, int64(900), resp.ExpiresIn)
			if tt.expectedUserID != "" {
				assert.Equal(t, tt.expectedUserID, resp.UserID)
			} else {
				_, err := uuid.Parse(resp.UserID)
				assert.NoError(t, err)
			}

			claims, err := ValidateAccessToken(cfg, resp.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, resp.UserID, claims.UserID)
		})
	}
}

func TestValidateAccessToken(t *testing.T) {
	cfg := testJWTConfig()

	token, expiresIn, err := GenerateAccessToken(cfg, "alice", "Alice")
	require.NoError(t, err)
	assert.Equal(t, int64(900), expiresIn)

	claims, err := ValidateAccessToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.UserID)
	assert.Equal(t, "Alice", claims.Username)
	assert.Equal(t, Issuer, claims.Issuer)
	assert.Equal(t, "alice", claims.Subject)

	sign := func(method jwt.SigningMethod, key any, claims CustomClaims) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	valid := func() CustomClaims {
		return CustomClaims{
			UserID: "alice",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    Issuer,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			},
		}
	}

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "abc"},
		{name: "wrong secret", token: sign(jwt.SigningMethodHS256, []byte("other"), valid())},
		{name: "wrong algorithm", token: sign(jwt.SigningMethodHS512, cfg.Secret, valid())},
		{name: "unsigned", token: sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, valid())},
		{name: "foreign issuer", token: func() string {
			c := valid()
			c.Issuer = "other-service"
			return sign(jwt.SigningMethodHS256, cfg.Secret, c)
		}()},
		{name: "no expiration", token: func() string {
			c := valid()
			c.ExpiresAt = nil
			return sign(jwt.SigningMethodHS256, cfg.Secret, c)
		}()},
		{name: "expired", token: func() string {
			c := valid()
			c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
			return sign(jwt.SigningMethodHS256, cfg.Secret, c)
		}()},
		{name: "missing user id", token: func() string {
			c := valid()
			c.UserID = ""
			return sign(jwt.SigningMethodHS256, cfg.Secret, c)
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateAccessToken(cfg, tt.token)
			assert.Error(t, err)
		})
	}
}
