package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/fitplan/internal/config"
	"github.com/sakif/fitplan/internal/repository"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(t.TempDir(), "nested", "fitplan.db")
	cfg.Auth.JWTSecret = "server-test-secret-0123"
	if mutate != nil {
		mutate(&cfg)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	s, err := New(&cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func serve(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "192.0.2.10:5555"
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func TestServer_Routes(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"health", http.MethodGet, "/healthz", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", http.StatusOK},
		{"public catalog", http.MethodGet, "/api/catalog", http.StatusOK},
		{"workouts need auth", http.MethodGet, "/api/workouts", http.StatusUnauthorized},
		{"payments need auth", http.MethodGet, "/api/payments", http.StatusUnauthorized},
		{"github disabled", http.MethodGet, "/auth/github/login", http.StatusNotFound},
		{"unknown route", http.MethodGet, "/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(s, tt.method, tt.path, "")
			assert.Equal(t, tt.status, rr.Code)
		})
	}
}

func TestServer_MetricsExposeRequestHistogram(t *testing.T) {
	s := newTestServer(t, nil)
	serve(s, http.MethodGet, "/api/catalog", "")

	rr := serve(s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `fitplan_http_request_duration_seconds_count{method="GET",route="/api/catalog",status="200"}`)
}

func TestServer_GitHubRoutesWhenConfigured(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.GitHub.ClientID = "id"
		c.GitHub.ClientSecret = "secret"
		c.GitHub.CallbackURL = "http://localhost:8080/auth/github/callback"
	})

	rr := serve(s, http.MethodGet, "/auth/github/login", "")
	assert.Equal(t, http.StatusTemporaryRedirect, rr.Code)
	assert.Contains(t, rr.Header().Get("Location"), "github.com")
}

func TestServer_RateLimitsLogin(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.RateLimit.RequestsPerMinute = 1
		c.RateLimit.Burst = 2
	})

	body := `{"username":"nobody","password":"whatever1"}`
	assert.Equal(t, http.StatusUnauthorized, serve(s, http.MethodPost, "/api/auth/login", body).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(s, http.MethodPost, "/api/auth/login", body).Code)

	rr := serve(s, http.MethodPost, "/api/auth/login", body)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	// reads are not throttled
	assert.Equal(t, http.StatusOK, serve(s, http.MethodGet, "/api/catalog", "").Code)
}

func TestServer_PurgesSqliteRevocations(t *testing.T) {
	s := newTestServer(t, nil)
	assert.Len(t, s.cron.Entries(), 2)

	purger, ok := s.revoked.(repository.Purger)
	require.True(t, ok, "without redis the sqlite store is used and purged by cron")

	ctx := context.Background()
	require.NoError(t, s.revoked.Revoke(ctx, "expired-token", time.Now().Add(-time.Minute)))
	s.purgeRevocations(purger)

	n, err := purger.PurgeExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n, "the job already removed the expired row")
}
