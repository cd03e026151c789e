package middleware

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/mediflash/mediflash-api/internal/api/shared"
	"github.com/mediflash/mediflash-api/internal/platform/logger"
)

// UserIDHeader carries the caller's identity, set by the gateway in front
// of the API.
const UserIDHeader = "X-User-ID"

// RequireUserID rejects requests without a valid X-User-ID header and
// stores the parsed user ID in the request context.
func RequireUserID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(UserIDHeader)
		if raw == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID header required")
			return
		}

		userID, err := uuid.Parse(raw)
		if err != nil || userID == uuid.Nil {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid user ID")
			return
		}

		ctx := shared.WithUserID(r.Context(), userID)
		ctx = logger.WithLogger(ctx, logger.FromContext(ctx).With(slog.String("user_id", userID.String())))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
