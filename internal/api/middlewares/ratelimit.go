package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/markdave123-py/aspiro/internal/logging"
	"github.com/markdave123-py/aspiro/internal/metrics"
	"github.com/markdave123-py/aspiro/internal/pkg/apperrors"
	"github.com/markdave123-py/aspiro/internal/pkg/response"
)

// Counter is a shared fixed-window counter, e.g. cache.Redis.
type Counter interface {
	IncrWithExpire(ctx context.Context, key string, expiration time.Duration) (int64, error)
}

const rateWindow = time.Minute

// RateLimit caps requests per client IP per minute. When the counter backend
// fails the request is let through and the failure logged.
func RateLimit(counter Counter, perMinute int, m *metrics.Metrics, logger logging.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := fmt.Sprintf("ratelimit:%s:%s", r.URL.Path, clientIP(r))

			count, err := counter.IncrWithExpire(r.Context(), key, rateWindow)
			if err != nil {
				logger.Warn(r.Context(), "rate limit backend unavailable", "err", err)
				next.ServeHTTP(w, r)
				return
			}

			remaining := perMinute - int(count)
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(perMinute))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if int(count) > perMinute {
				m.AuthFailures.WithLabelValues(metrics.ReasonRateLimited).Inc()
				w.Header().Set("Retry-After", strconv.Itoa(int(rateWindow.Seconds())))
				response.Error(w, apperrors.RateLimited("too many requests"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP relies on chi's RealIP middleware having rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
