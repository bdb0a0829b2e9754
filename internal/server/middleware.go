package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/binwise/backend/internal/pickups"
)

type contextKey string

const (
	actorContextKey contextKey = "actor"
	// actorHolderKey carries a holder installed by the audit middleware so
	// it can observe the actor resolved further down the chain.
	actorHolderKey contextKey = "actorHolder"
)

type actorHolder struct {
	actor pickups.Actor
}

// authMiddleware resolves the caller from the token cookie or, failing
// that, a bearer header, and stores the actor on the request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			respondError(w, http.StatusUnauthorized, "Not authorized, login again")
			return
		}

		claims, err := s.deps.Tokens.Validate(token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "Not authorized, login again")
			return
		}

		actor := pickups.Actor{ID: claims.UserID, Role: claims.Role}
		if holder, ok := r.Context().Value(actorHolderKey).(*actorHolder); ok {
			holder.actor = actor
		}
		ctx := context.WithValue(r.Context(), actorContextKey, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !actorFromContext(r.Context()).IsAdmin() {
			respondError(w, http.StatusForbidden, "Access denied: insufficient permissions")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie("token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func actorFromContext(ctx context.Context) pickups.Actor {
	actor, _ := ctx.Value(actorContextKey).(pickups.Actor)
	return actor
}
