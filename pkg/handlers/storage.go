package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/reportly-app/reportly/pkg/apperrors"
	"github.com/reportly-app/reportly/pkg/storage"
)

// StorageHandler serves objects from the embedded store. Logo URLs are
// public so spreadsheets and <img> tags can reference them.
type StorageHandler struct {
	store  storage.Store
	logger *zap.Logger
}

// NewStorageHandler creates a new storage handler.
func NewStorageHandler(store storage.Store, logger *zap.Logger) *StorageHandler {
	return &StorageHandler{store: store, logger: logger}
}

// RegisterRoutes registers the storage handler's routes on the given mux.
func (h *StorageHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /storage/{key...}", h.Get)
}

// Get handles GET /storage/{key...}
func (h *StorageHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	data, contentType, err := h.store.Get(r.Context(), key)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound), errors.Is(err, apperrors.ErrValidation):
			http.NotFound(w, r)
		default:
			h.logger.Error("Failed to read stored object", zap.String("key", key), zap.Error(err))
			http.Error(w, "failed to read object", http.StatusInternalServerError)
		}
		return
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
	if _, err := w.Write(data); err != nil {
		h.logger.Debug("Failed to write stored object", zap.String("key", key), zap.Error(err))
	}
}
