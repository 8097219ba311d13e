package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/reportly-app/reportly/pkg/config"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func newHealthMux(deps map[string]Pinger) *http.ServeMux {
	cfg := &config.Config{Version: "1.2.3", Env: "test"}
	cfg.Storage.Backend = "badger"
	mux := http.NewServeMux()
	NewHealthHandler(cfg, deps, zap.NewNop()).RegisterRoutes(mux)
	return mux
}

func TestHealthHandler_Health(t *testing.T) {
	rec := httptest.NewRecorder()
	newHealthMux(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestHealthHandler_Ping(t *testing.T) {
	rec := httptest.NewRecorder()
	newHealthMux(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var info BuildInfo
	decodeJSONBody(t, rec, &info)
	assert.Equal(t, "reportly", info.Service)
	assert.Equal(t, "1.2.3", info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, "test", info.Environment)
	assert.Equal(t, "badger", info.Storage)
}

func TestHealthHandler_Ready(t *testing.T) {
	healthy := pingFunc(func(ctx context.Context) error { return nil })
	down := pingFunc(func(ctx context.Context) error { return errors.New("connection refused") })

	t.Run("all dependencies up", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newHealthMux(map[string]Pinger{"database": healthy}).
			ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var resp ReadinessResponse
		decodeJSONBody(t, rec, &resp)
		assert.True(t, resp.Ready)
		assert.Equal(t, "ok", resp.Checks["database"])
	})

	t.Run("dependency down", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newHealthMux(map[string]Pinger{"database": down}).
			ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var resp ReadinessResponse
		decodeJSONBody(t, rec, &resp)
		assert.False(t, resp.Ready)
		assert.Equal(t, "unavailable", resp.Checks["database"])
	})
}
