package server

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sifan077/QuickLink/config"
	"github.com/sifan077/QuickLink/internal/app/repository"
	"github.com/sifan077/QuickLink/internal/app/service"
	"github.com/sifan077/QuickLink/internal/app/store"
	"github.com/sifan077/QuickLink/internal/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, deps Dependencies) *Server {
	t.Helper()
	st := store.New(repository.NewMemorySnapshotRepository(), store.Options{})
	deps.LinkService = service.NewLinkService(service.LinkServiceDeps{Store: st})
	deps.App = config.AppConfig{Name: "quicklink", BaseURL: "http://short.test"}
	return New(deps)
}

func TestServer_EndToEnd(t *testing.T) {
	srv := newServer(t, Dependencies{HTTPMetrics: middleware.NewHTTPMetrics(prometheus.NewRegistry())})
	app := srv.App()

	req := httptest.NewRequest("POST", "/api/links", strings.NewReader(`{"url":"https://example.com","shortcode":"e2e"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 201, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	resp, err = app.Test(httptest.NewRequest("GET", "/e2e", nil))
	require.NoError(t, err)
	assert.Equal(t, 302, resp.StatusCode)
	assert.Equal(t, "https://example.com", resp.Header.Get("Location"))

	resp, err = app.Test(httptest.NewRequest("GET", "/stats", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "http://short.test/e2e")

	resp, err = app.Test(httptest.NewRequest("GET", "/a/b/c", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestServer_RateLimitsCreation(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	srv := newServer(t, Dependencies{
		Redis:     rdb,
		RateLimit: config.RateLimitConfig{Enabled: true, MaxRequests: 1, Window: time.Minute},
	})
	app := srv.App()

	post := func() int {
		req := httptest.NewRequest("POST", "/api/links", strings.NewReader(`{"url":"https://example.com"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, 201, post())
	assert.Equal(t, 429, post())

	resp, err := app.Test(httptest.NewRequest("GET", "/api/links", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode, "reads are not limited")
}
