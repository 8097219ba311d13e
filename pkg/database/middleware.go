package database

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/reportly-app/reportly/pkg/auth"
)

// WithUserContext creates middleware that sets up a user-scoped DB connection.
// It runs AFTER auth middleware and uses the subject from the JWT claims.
// The connection is released after the handler returns.
func WithUserContext(db *DB, logger *zap.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims, ok := auth.GetClaims(r.Context())
			if !ok || claims.Subject == "" {
				logger.Error("Missing user in claims")
				writeError(w, http.StatusInternalServerError, "internal_error", "Missing user context")
				return
			}

			scope, err := db.WithUser(r.Context(), claims.Subject)
			if err != nil {
				logger.Error("Failed to acquire user connection",
					zap.String("user_id", claims.Subject),
					zap.Error(err))
				writeError(w, http.StatusInternalServerError, "database_error", "Database connection error")
				return
			}
			defer scope.Close()

			ctx := SetUserScope(r.Context(), scope)
			next(w, r.WithContext(ctx))
		}
	}
}

func writeError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}
