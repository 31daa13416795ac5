package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/aspiro/internal/logging"
	"github.com/markdave123-py/aspiro/internal/metrics"
	"github.com/markdave123-py/aspiro/internal/models"
	"github.com/markdave123-py/aspiro/internal/pkg/apperrors"
)

type stubAuth struct {
	user  *models.User
	err   error
	calls int
	got   string
}

func (s *stubAuth) Authenticate(ctx context.Context, raw string) (*models.User, error) {
	s.calls++
	s.got = raw
	return s.user, s.err
}

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRequireUser_InjectsUser(t *testing.T) {
	auth := &stubAuth{user: &models.User{ID: 9, Email: "alice@example.com"}}
	var seen *models.User
	h := RequireUser(auth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer abc.def.ghi")
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, seen)
	assert.Equal(t, int64(9), seen.ID)
	assert.Equal(t, "abc.def.ghi", auth.got)
}

func TestRequireUser_RejectsWithoutCallingHandler(t *testing.T) {
	cases := []struct {
		name   string
		header string
		auth   *stubAuth
		calls  int
		status int
	}{
		{"no header", "", &stubAuth{}, 0, http.StatusUnauthorized},
		{"wrong scheme", "Basic dXNlcjpwYXNz", &stubAuth{}, 0, http.StatusUnauthorized},
		{"empty token", "Bearer   ", &stubAuth{}, 0, http.StatusUnauthorized},
		{"invalid token", "Bearer bad", &stubAuth{err: apperrors.Unauthorized("invalid or expired token")}, 1, http.StatusUnauthorized},
		{"store down", "Bearer tok", &stubAuth{err: apperrors.Persistence(errors.New("db"))}, 1, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			h := RequireUser(tc.auth)(okHandler(&called))

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.False(t, called)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.calls, tc.auth.calls)
		})
	}
}

func TestRequireUser_SchemeIsCaseInsensitive(t *testing.T) {
	called := false
	h := RequireUser(&stubAuth{user: &models.User{ID: 1}})(okHandler(&called))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "bearer tok")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.True(t, called)
}

func TestUserFromContext_Empty(t *testing.T) {
	_, ok := UserFromContext(context.Background())
	assert.False(t, ok)
}

type memCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (m *memCounter) IncrWithExpire(ctx context.Context, key string, _ time.Duration) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = map[string]int64{}
	}
	m.counts[key]++
	return m.counts[key], nil
}

func TestRateLimit_BlocksAfterLimit(t *testing.T) {
	m := metrics.NewNop()
	called := false
	h := RateLimit(&memCounter{}, 2, m, logging.Nop())(okHandler(&called))

	do := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, do("10.0.0.1:1111").Code)
	assert.Equal(t, http.StatusNoContent, do("10.0.0.1:2222").Code)

	blocked := do("10.0.0.1:3333")
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.Equal(t, "60", blocked.Header().Get("Retry-After"))
	assert.Equal(t, "0", blocked.Header().Get("X-RateLimit-Remaining"))

	// Another client has its own window.
	assert.Equal(t, http.StatusNoContent, do("10.0.0.2:1111").Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthFailures.WithLabelValues(metrics.ReasonRateLimited)))
}

func TestRateLimit_FailsOpen(t *testing.T) {
	called := false
	h := RateLimit(&memCounter{err: errors.New("redis down")}, 1, metrics.NewNop(), logging.Nop())(okHandler(&called))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.True(t, called)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestMetrics_LabelsByRoutePattern(t *testing.T) {
	m := metrics.NewNop()
	r := chi.NewRouter()
	r.Use(Metrics(m))
	r.Get("/chat-history/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, id := range []string{"1", "2", "3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/chat-history/"+id, nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/chat-history/{sessionID}", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "unmatched", "404")))
}

func TestLogging_WritesRequestLine(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(Logging(logger))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	out := buf.String()
	assert.Contains(t, out, `"path":"/health"`)
	assert.Contains(t, out, `"status":418`)
	assert.Contains(t, out, `"request_id":`)
}
