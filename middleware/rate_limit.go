package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines the configuration for rate limiting
type RateLimitConfig struct {
	// Requests is the maximum number of requests allowed within the window
	Requests int
	// Window is the time window for rate limiting
	Window time.Duration
	// KeyFunc is a function that returns a unique key for rate limiting (defaults to IP)
	KeyFunc func(c echo.Context) string
	// Message is the error message returned when rate limit is exceeded
	Message string
}

// rateLimitEntry is the token bucket of one key
type rateLimitEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-key token bucket limiter. Each key may spend Requests
// tokens at once and regains them evenly over Window.
type RateLimiter struct {
	config    RateLimitConfig
	limit     rate.Limit
	store     map[string]*rateLimitEntry
	lastPrune time.Time
	now       func() time.Time
	mu        sync.Mutex
}

// NewRateLimiter creates a new rate limiter with the given configuration
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.Requests <= 0 {
		config.Requests = 1
	}
	if config.KeyFunc == nil {
		config.KeyFunc = func(c echo.Context) string {
			return c.RealIP()
		}
	}
	if config.Message == "" {
		config.Message = "Too many requests. Please try again later."
	}

	return &RateLimiter{
		config: config,
		limit:  rate.Every(config.Window / time.Duration(config.Requests)),
		store:  make(map[string]*rateLimitEntry),
		now:    time.Now,
	}
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastPrune) > rl.config.Window {
		rl.prune(now)
	}

	entry, exists := rl.store[key]
	if !exists {
		entry = &rateLimitEntry{limiter: rate.NewLimiter(rl.limit, rl.config.Requests)}
		rl.store[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// Middleware returns the rate limiting middleware
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			limiter := rl.limiterFor(rl.config.KeyFunc(c))

			r := limiter.Reserve()
			if delay := r.Delay(); delay > 0 {
				r.Cancel()
				retry := int(math.Ceil(delay.Seconds()))
				c.Response().Header().Set(echo.HeaderRetryAfter, strconv.Itoa(retry))
				return echo.NewHTTPError(http.StatusTooManyRequests, rl.config.Message)
			}
			return next(c)
		}
	}
}

// prune drops keys idle for longer than the window. Caller holds mu.
func (rl *RateLimiter) prune(now time.Time) {
	cutoff := now.Add(-rl.config.Window)
	for key, entry := range rl.store {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.store, key)
		}
	}
	rl.lastPrune = now
}

// Len reports how many keys are tracked
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.store)
}

// NewLoginRateLimiter limits login attempts to perMinute per IP
func NewLoginRateLimiter(perMinute int) *RateLimiter {
	return NewRateLimiter(RateLimitConfig{
		Requests: perMinute,
		Window:   1 * time.Minute,
		Message:  "Too many login attempts. Please wait a minute before trying again.",
	})
}
