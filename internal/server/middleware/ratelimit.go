package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/iudanet/sketchsync/internal/server/handlers"
)

// RateLimiter ограничивает частоту запросов по ключу (token bucket).
// Бакет вмещает rate токенов и полностью пополняется за window.
type RateLimiter struct {
	buckets  map[string]*bucket
	now      func() time.Time
	cleanupC chan struct{}
	stopOnce sync.Once
	rate     int
	window   time.Duration
	mu       sync.Mutex
}

type bucket struct {
	lastSeen time.Time
	tokens   float64
}

// NewRateLimiter создает новый rate limiter
func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		buckets:  make(map[string]*bucket),
		now:      time.Now,
		cleanupC: make(chan struct{}),
		rate:     rate,
		window:   window,
	}

	go rl.cleanup()
	return rl
}

// cleanup периодически удаляет полные бакеты
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window * 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupOldBuckets()
		case <-rl.cleanupC:
			return
		}
	}
}

// cleanupOldBuckets удаляет бакеты, не использовавшиеся дольше window:
// к этому моменту они пополнились бы полностью
func (rl *RateLimiter) cleanupOldBuckets() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) > rl.window {
			delete(rl.buckets, key)
		}
	}
}

// Stop останавливает cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.cleanupC) })
}

// Allow проверяет, разрешен ли запрос для данного ключа
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(rl.rate), lastSeen: now}
		rl.buckets[key] = b
	}

	refill := now.Sub(b.lastSeen).Seconds() / rl.window.Seconds() * float64(rl.rate)
	b.tokens = min(float64(rl.rate), b.tokens+refill)
	b.lastSeen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// KeyFunc выбирает ключ, по которому считаются запросы
type KeyFunc func(r *http.Request) string

// ByClientIP считает запросы по IP адресу клиента
func ByClientIP(r *http.Request) string {
	return getClientIP(r)
}

// ByUserID считает запросы по пользователю из токена, без токена - по IP
func ByUserID(r *http.Request) string {
	if userID, ok := handlers.GetUserID(r.Context()); ok {
		return "user:" + userID
	}
	return getClientIP(r)
}

// RateLimitMiddleware создает middleware для ограничения частоты запросов
func RateLimitMiddleware(limiter *RateLimiter, key KeyFunc, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if !limiter.Allow(k) {
				logger.Warn("Rate limit exceeded",
					"key", k,
					"method", r.Method,
					"path", r.URL.Path,
				)

				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate limit exceeded, please try again later"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP извлекает IP адрес клиента из запроса
// Проверяет заголовки X-Forwarded-For и X-Real-IP для прокси
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	return r.RemoteAddr
}
