package router_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apphttp "livability_backend/internal/http"
	"livability_backend/internal/http/router"
	"livability_backend/platform/config"
	"livability_backend/platform/httpkit"
	"livability_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockHealth struct{ err error }

func (m *mockHealth) Ping(_ context.Context) error { return m.err }

type pingModule struct{}

func (pingModule) Name() string { return "ping" }

func (pingModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Limited.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
}

func newTestEngine(health apphttp.HealthChecker, burst int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return router.New(&apphttp.App{
		Config: &config.Config{
			CORSOrigins:    []string{"https://app.example"},
			RateLimitRPS:   0.001,
			RateLimitBurst: burst,
		},
		Logger:  logger.Discard(),
		Health:  health,
		Modules: []apphttp.Module{pingModule{}},
	})
}

func TestHealthReturns200(t *testing.T) {
	engine := newTestEngine(&mockHealth{}, 5)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, rec.Header().Get(httpkit.HeaderRequestID))
}

func TestHealthReturns503WhenDatabaseDown(t *testing.T) {
	engine := newTestEngine(&mockHealth{err: errors.New("connection refused")}, 5)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	engine := newTestEngine(nil, 5)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRequestIDIsPropagated(t *testing.T) {
	engine := newTestEngine(nil, 5)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set(httpkit.HeaderRequestID, "req-123")
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-123", rec.Header().Get(httpkit.HeaderRequestID))
}

func TestLimitedRoutesAreRateLimited(t *testing.T) {
	engine := newTestEngine(nil, 2)

	codes := make([]int, 0, 3)
	for range 3 {
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
