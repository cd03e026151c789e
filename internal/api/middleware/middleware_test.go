package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/mediflash/mediflash-api/internal/api/shared"
	"github.com/mediflash/mediflash-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceMiddleware(t *testing.T) {
	t.Parallel()

	log, logBuf := logger.GetTestLogger(t)

	var seenTrace string
	handler := NewTraceMiddleware(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenTrace = shared.GetTraceID(r.Context())
		logger.FromContext(r.Context()).Info("inside handler")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/decks", nil))

	require.NotEmpty(t, seenTrace)
	assert.Equal(t, seenTrace, w.Header().Get(TraceIDHeader))
	logger.AssertLogField(t, logBuf, "trace_id", seenTrace)
	assert.Contains(t, logBuf.String(), "inside handler")
}

func TestRequireUserID(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "valid", header: userID.String(), wantStatus: http.StatusOK},
		{name: "missing", header: "", wantStatus: http.StatusUnauthorized},
		{name: "malformed", header: "not-a-uuid", wantStatus: http.StatusUnauthorized},
		{name: "nil uuid", header: uuid.Nil.String(), wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got uuid.UUID
			handler := RequireUserID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, _ = shared.UserIDFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			r := httptest.NewRequest(http.MethodGet, "/api/decks", nil)
			if tt.header != "" {
				r.Header.Set(UserIDHeader, tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, userID, got)
			}
		})
	}
}
