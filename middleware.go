package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"herbtrace/models"

	"go.uber.org/zap"
)

type ctxKey string

const userKey ctxKey = "user"

// authMiddleware validates the Bearer token and injects the token's user
// into the request context.
func (a *App) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := r.Header.Get("Authorization")
		if !strings.HasPrefix(authz, "Bearer ") {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		uid, err := parseJWT(a.cfg.JWTSecret, strings.TrimPrefix(authz, "Bearer "))
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		u, err := a.users.ByID(ctx, uid)
		cancel()
		if err != nil {
			a.log.Debug("token user lookup", zap.String("userId", uid.Hex()), zap.Error(err))
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, u)))
	})
}

// requireRoles lets a request through only for the listed roles.
func requireRoles(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := currentUser(r)
			for _, role := range roles {
				if u != nil && u.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, "forbidden for this role", http.StatusForbidden)
		})
	}
}

// currentUser returns the authenticated user, or nil outside authMiddleware.
func currentUser(r *http.Request) *models.User {
	u, _ := r.Context().Value(userKey).(*models.User)
	return u
}
