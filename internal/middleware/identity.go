// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"context"
	"net/http"
)

type contextKey string

// UserIDKey is the context key under which the caller's user id is stored.
const UserIDKey contextKey = "user_id"

// userIDHeader carries the caller identity. Authentication happens upstream;
// by the time a request reaches this service the gateway has verified the
// user and stamped this header.
const userIDHeader = "X-User-ID"

// Identity extracts the caller's user id into the request context and
// rejects requests that arrive without one.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(userIDHeader)
		if userID == "" {
			http.Error(w, `{"error":"missing user identity","code":"unauthenticated"}`, http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserID returns the caller's user id from the context, or "" if absent.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(UserIDKey).(string)
	return id
}
