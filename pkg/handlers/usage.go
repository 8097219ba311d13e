package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/reportly-app/reportly/pkg/auth"
	"github.com/reportly-app/reportly/pkg/services"
)

// UsageHandler reports plan usage.
type UsageHandler struct {
	usage  services.UsageService
	logger *zap.Logger
}

// NewUsageHandler creates a new usage handler.
func NewUsageHandler(usage services.UsageService, logger *zap.Logger) *UsageHandler {
	return &UsageHandler{usage: usage, logger: logger}
}

// RegisterRoutes registers the usage handler's routes on the given mux.
func (h *UsageHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, userMiddleware UserMiddleware) {
	mux.HandleFunc("GET /api/usage", authMiddleware.RequireAuth(userMiddleware(h.Get)))
}

// Get handles GET /api/usage
func (h *UsageHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	usage, err := h.usage.Usage(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, "usage_failed", "Failed to load usage", "", h.logger)
		return
	}

	writeSuccess(w, http.StatusOK, usage, h.logger)
}
