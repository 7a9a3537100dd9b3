package relay

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

// BearerHandler validates an HTTP bearer token.
type BearerHandler func(ctx context.Context, token string) error

// StaticToken accepts exactly one token.
func StaticToken(expected string) BearerHandler {
	return func(_ context.Context, token string) error {
		if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			return NewUnauthorizedError("invalid bearer token")
		}
		return nil
	}
}

// RequireBearer rejects requests whose bearer token h does not accept.
func RequireBearer(h BearerHandler, onError ErrorHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractBearerToken(r)
			if token == "" {
				onError(w, r, NewUnauthorizedError("missing bearer token"))
				return
			}
			if err := h(r.Context(), token); err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ExtractBearerToken extracts the bearer token from the Authorization header.
func ExtractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return auth[7:]
	}
	return ""
}
