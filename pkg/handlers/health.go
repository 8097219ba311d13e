package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/reportly-app/reportly/pkg/config"
)

const readinessTimeout = 2 * time.Second

// Pinger is a dependency readiness can probe. *database.DB satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BuildInfo describes the running binary.
type BuildInfo struct {
	Service     string `json:"service"`
	Version     string `json:"version"`
	GoVersion   string `json:"go_version"`
	Environment string `json:"environment"`
	Storage     string `json:"storage"`
}

// ReadinessResponse reports each dependency's state.
type ReadinessResponse struct {
	Ready  bool              `json:"ready"`
	Checks map[string]string `json:"checks"`
}

// HealthHandler serves liveness, readiness and build info.
type HealthHandler struct {
	info   BuildInfo
	deps   map[string]Pinger
	logger *zap.Logger
}

// NewHealthHandler creates a health handler. deps are probed by /ready under
// their map keys; a nil map makes readiness equal liveness.
func NewHealthHandler(cfg *config.Config, deps map[string]Pinger, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		info: BuildInfo{
			Service:     "reportly",
			Version:     cfg.Version,
			GoVersion:   runtime.Version(),
			Environment: cfg.Env,
			Storage:     cfg.Storage.Backend,
		},
		deps:   deps,
		logger: logger,
	}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ready", h.Ready)
	mux.HandleFunc("GET /ping", h.Ping)
}

// Health handles GET /health. The process is alive if it can answer.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	resp := ReadinessResponse{Ready: true, Checks: make(map[string]string, len(h.deps))}
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			h.logger.Warn("Readiness check failed", zap.String("dependency", name), zap.Error(err))
			resp.Ready = false
			resp.Checks[name] = "unavailable"
			continue
		}
		resp.Checks[name] = "ok"
	}

	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}
	if err := WriteJSON(w, status, resp); err != nil {
		h.logger.Error("Failed to write readiness response", zap.Error(err))
	}
}

// Ping handles GET /ping
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	if err := WriteJSON(w, http.StatusOK, h.info); err != nil {
		h.logger.Error("Failed to write ping response", zap.Error(err))
	}
}
