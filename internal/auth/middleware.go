package auth

import (
	"context"
	"net/http"
	"strings"
)

// contextKey is an unexported type used for context keys in this package.
// Using a package-private type prevents other packages from reading or
// shadowing the userID value in the request context.
type contextKey string

const userIDKey contextKey = "userID"

// RequireAuth is a middleware that enforces authentication on protected
// routes. It extracts the JWT, validates it, and stores the userID in the
// request context. A missing or invalid token stops the chain with 401.
//
// TOKEN SOURCES, in order:
//  1. "Authorization: Bearer <jwt>" header — what the SPA sends on every
//     API call.
//  2. The "token" HttpOnly cookie — set by the GitHub OAuth callback so the
//     browser redirect lands already signed in.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := extractUserID(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}`))
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext retrieves the authenticated user's ID from the request
// context. Returns ("", false) if the request is anonymous.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// extractUserID pulls the JWT from the request and validates it.
func extractUserID(r *http.Request, tokens *TokenService) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			return "", http.ErrNoCookie
		}
		return tokens.Validate(strings.TrimSpace(tokenStr))
	}

	cookie, err := r.Cookie("token")
	if err != nil {
		return "", err
	}
	return tokens.Validate(cookie.Value)
}
