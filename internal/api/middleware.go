package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/eventbridgenz/eventbridge/internal/auth"
)

// contextKey is a custom type for context keys so they cannot collide with
// keys set by other packages.
type contextKey string

const (
	userContextKey = contextKey("userID")
	roleContextKey = contextKey("role")
)

// authMiddleware protects routes that require authentication. It accepts a
// JWT from the Authorization header or, for SSE connections where headers
// are awkward, from a `token` query parameter. On success the user's ID and
// platform role are injected into the request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := ""

		authHeader := r.Header.Get("Authorization")
		headerParts := strings.Split(authHeader, " ")
		if len(headerParts) == 2 && strings.ToLower(headerParts[0]) == "bearer" {
			tokenString = headerParts[1]
		}
		if tokenString == "" {
			tokenString = r.URL.Query().Get("token")
		}
		if tokenString == "" {
			s.errorJSON(w, errors.New("authorization token is required"), http.StatusUnauthorized)
			return
		}

		claims, err := auth.ValidateJWT(tokenString, s.config.JwtSecret)
		if err != nil {
			s.errorJSON(w, errors.New("invalid or expired token"), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, claims.UserID)
		ctx = context.WithValue(ctx, roleContextKey, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole gates a route group to users holding one of the given platform
// roles. Must be nested inside authMiddleware.
func (s *Server) requireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := r.Context().Value(roleContextKey).(string)
			if !ok {
				s.errorJSON(w, errors.New("could not retrieve role from context"), http.StatusInternalServerError)
				return
			}
			if _, ok := allowed[role]; !ok {
				s.errorJSON(w, errors.New("insufficient permissions"), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// getUserIDFromContext retrieves the authenticated user's ID. Only valid
// behind authMiddleware.
func (s *Server) getUserIDFromContext(r *http.Request) (int64, error) {
	userID, ok := r.Context().Value(userContextKey).(int64)
	if !ok {
		return 0, errors.New("could not retrieve user ID from context")
	}
	return userID, nil
}
