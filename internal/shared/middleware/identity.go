package middleware

import (
	"context"
	"net/http"
	"strconv"
)

type ContextKey string

const UserIDKey ContextKey = "user_id"

// Identify resolves the caller from the X-User-ID header and stores the
// user ID in the request context. There is no credential check here; the
// service is expected to run behind a gateway that authenticates requests.
func Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("X-User-ID")
		if header == "" {
			http.Error(w, "X-User-ID header required", http.StatusUnauthorized)
			return
		}

		userID, err := strconv.ParseInt(header, 10, 64)
		if err != nil || userID <= 0 {
			http.Error(w, "Invalid X-User-ID header", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
