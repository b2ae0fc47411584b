package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/listas/listas-api/internal/api/shared"
)

// UserIDHeader carries the caller's identity. Authentication itself lives in
// an upstream gateway; by the time a request reaches this service the header
// is trusted.
const UserIDHeader = "X-User-ID"

// UserIdentity extracts the authenticated user's ID from the X-User-ID
// header and stores it on the request context under shared.UserIDContextKey.
// Requests without a valid header are rejected with 401.
func UserIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(UserIDHeader)
		if raw == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Missing user identity")
			return
		}

		userID, err := uuid.Parse(raw)
		if err != nil || userID == uuid.Nil {
			slog.Debug("rejecting request with malformed user identity",
				slog.String("path", r.URL.Path))
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid user identity")
			return
		}

		ctx := context.WithValue(r.Context(), shared.UserIDContextKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
