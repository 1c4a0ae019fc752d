package http

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/example/fitness-scheduler/internal/application"
)

// Identity headers trusted from the fronting gateway.
const (
	identityHeader = "X-User-ID"
	roleHeader     = "X-User-Role"
	adminRole      = "admin"
)

// RequireIdentity resolves the acting principal from the gateway supplied
// identity headers and rejects anonymous requests.
func RequireIdentity(logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := strings.TrimSpace(r.Header.Get(identityHeader))
			if userID == "" {
				responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingIdentity)
				return
			}

			principal := application.Principal{
				UserID:  userID,
				IsAdmin: strings.EqualFold(strings.TrimSpace(r.Header.Get(roleHeader)), adminRole),
			}

			ctx := ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimit applies a per-client token bucket. Clients are keyed by the
// identity header when present, falling back to the remote address.
func RateLimit(requestsPerSecond float64, burst int, logger *slog.Logger) func(http.Handler) http.Handler {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 10
	}
	if burst <= 0 {
		burst = int(requestsPerSecond)
		if burst < 1 {
			burst = 1
		}
	}

	responder := newResponder(logger)
	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(identityHeader))
			if key == "" {
				key = r.RemoteAddr
			}

			mu.Lock()
			limiter, ok := limiters[key]
			if !ok {
				limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
				limiters[key] = limiter
			}
			mu.Unlock()

			if !limiter.Allow() {
				responder.writeJSON(r.Context(), w, http.StatusTooManyRequests,
					errorResponse{Message: "rate limit exceeded, retry later"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger attaches a request scoped logger to the context and records
// request start and completion.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	var counter atomic.Uint64

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := counter.Add(1)
			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := ContextWithLogger(r.Context(), logger)
			start := time.Now()
			logger.InfoContext(ctx, "request started")
			next.ServeHTTP(w, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "duration", time.Since(start))
		})
	}
}
