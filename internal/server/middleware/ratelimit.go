package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// RateLimiter ограничивает частоту запросов по ключу (IP адрес)
// в рамках фиксированного окна
type RateLimiter struct {
	windows map[string]*window
	rate    int
	size    time.Duration
	stopC   chan struct{}
	mu      sync.Mutex
}

// window считает запросы одного ключа в текущем окне
type window struct {
	startedAt time.Time
	count     int
}

// NewRateLimiter создает rate limiter: не больше rate запросов
// на ключ за окно size
func NewRateLimiter(rate int, size time.Duration) *RateLimiter {
	rl := &RateLimiter{
		windows: make(map[string]*window),
		rate:    rate,
		size:    size,
		stopC:   make(chan struct{}),
	}

	// Периодически выбрасываем неактивные окна
	go rl.cleanupLoop()

	return rl
}

// Allow проверяет, разрешен ли запрос для данного ключа
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()

	win, exists := rl.windows[key]
	if !exists || now.Sub(win.startedAt) >= rl.size {
		rl.windows[key] = &window{startedAt: now, count: 1}
		return true
	}

	if win.count >= rl.rate {
		return false
	}

	win.count++
	return true
}

// Stop останавливает cleanup goroutine
func (rl *RateLimiter) Stop() {
	close(rl.stopC)
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.size * 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			now := time.Now()
			for key, win := range rl.windows {
				if now.Sub(win.startedAt) >= rl.size*2 {
					delete(rl.windows, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopC:
			return
		}
	}
}

// RateLimitMiddleware создает middleware для ограничения частоты
// запросов по IP клиента
func RateLimitMiddleware(limiter *RateLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r)

			if !limiter.Allow(key) {
				logger.Warn("rate limit exceeded",
					"ip", key,
					"method", r.Method,
					"path", r.URL.Path,
				)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate limit exceeded, please try again later"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP извлекает IP клиента с учетом прокси заголовков
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Первый IP в списке - реальный клиент
		for idx := 0; idx < len(xff); idx++ {
			if xff[idx] == ',' {
				return xff[:idx]
			}
		}
		return xff
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	return r.RemoteAddr
}
