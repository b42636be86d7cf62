// Package auth validates the external auth provider's JWTs and exposes the
// authenticated user identity to handlers and services through the request
// context.
package auth

import (
	"context"
	"fmt"
)

type contextKey string

// ClaimsKey is the context key under which validated claims are stored.
const ClaimsKey contextKey = "authClaims"

// GetClaims retrieves validated claims from the context.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok && claims != nil
}

// SetClaims stores validated claims in the context. Exposed for tests and
// middleware.
func SetClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

// GetUserIDFromContext extracts the owning-user identifier from the context.
// Returns empty string if not authenticated.
func GetUserIDFromContext(ctx context.Context) string {
	claims, ok := GetClaims(ctx)
	if !ok {
		return ""
	}
	return claims.UserID()
}

// RequireUserIDFromContext extracts the owning-user identifier and errors if
// it is absent. Use this when the operation cannot proceed unauthenticated.
func RequireUserIDFromContext(ctx context.Context) (string, error) {
	userID := GetUserIDFromContext(ctx)
	if userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}
