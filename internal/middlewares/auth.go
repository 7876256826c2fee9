package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/sadikur-dev/mailreward/internal/auth"
)

type contextKey string

const (
	UserIDKey contextKey = "userID"
	LoginKey  contextKey = "login"
)

func Auth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}

			headerParts := strings.Split(authHeader, " ")
			if len(headerParts) != 2 || headerParts[0] != "Bearer" {
				http.Error(w, "invalid authorization header", http.StatusUnauthorized)
				return
			}

			claims, err := auth.ParseClaims(headerParts[1], jwtSecret)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, LoginKey, claims.Login)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
