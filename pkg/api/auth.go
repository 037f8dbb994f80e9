package api

// TokenRequest представляет запрос гостевого токена доступа к комнатам
type TokenRequest struct {
	UserID   string `json:"user_id"`            // стабильный id пользователя
	Username string `json:"username,omitempty"` // отображаемое имя
}

// TokenResponse представляет ответ с токеном доступа
type TokenResponse struct {
	AccessToken string `json:"access_token"` // JWT access token
	ExpiresIn   int64  `json:"expires_in"`   // время жизни access token в секундах
	UserID      string `json:"user_id"`      // id пользователя, для которого выдан токен
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
}
