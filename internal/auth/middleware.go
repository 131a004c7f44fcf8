package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// RequireAuth rejects the request with 401 unless the bearer token in the
// Authorization header validates. On success the Caller is stored in the
// request context.
//
// It fails closed: when the identity service cannot be reached the request
// is rejected, never passed through.
func RequireAuth(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeUnauthorized(w, "authentication required")
				return
			}

			caller, err := tokens.ValidateToken(r.Context(), token)
			if err != nil {
				msg := "invalid or expired token"
				if errors.Is(err, ErrIdentityUnavailable) {
					msg = "identity service unavailable"
				}
				writeUnauthorized(w, msg)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

// OptionalAuth attaches the Caller when a valid bearer token is present and
// otherwise lets the request through as anonymous.
//
// It fails open: a bad token or an unreachable identity service degrades
// the request to anonymous instead of rejecting it.
func OptionalAuth(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token, ok := bearerToken(r); ok {
				if caller, err := tokens.ValidateToken(r.Context(), token); err == nil {
					r = r.WithContext(WithCaller(r.Context(), caller))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[7:])
	return token, token != ""
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "unauthorized",
		"message": message,
	})
}
