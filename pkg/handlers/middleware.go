package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/cardfolio-inc/cardfolio-engine/pkg/auth"
	"github.com/cardfolio-inc/cardfolio-engine/pkg/database"
)

// ScopeMiddleware wraps a handler with a user-scoped database connection
// derived from the authenticated claims. It runs after auth middleware.
type ScopeMiddleware func(http.HandlerFunc) http.HandlerFunc

// NewScopeMiddleware builds the scope middleware over a ScopeProvider.
func NewScopeMiddleware(scopes *database.ScopeProvider, logger *zap.Logger) ScopeMiddleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			userID, err := auth.RequireUserIDFromContext(r.Context())
			if err != nil {
				logger.Error("no authenticated user on scoped route", zap.Error(err))
				if err := ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required"); err != nil {
					logger.Error("Failed to write error response", zap.Error(err))
				}
				return
			}

			ctx, cleanup, err := scopes.WithUserScope(r.Context(), userID)
			if err != nil {
				logger.Error("failed to acquire user scope", zap.Error(err))
				if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to acquire database connection"); err != nil {
					logger.Error("Failed to write error response", zap.Error(err))
				}
				return
			}
			defer cleanup()

			next(w, r.WithContext(ctx))
		}
	}
}
