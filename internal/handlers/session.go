package handlers

import (
	"net/http"
	"strings"

	"github.com/crownside/storefront/internal/platform/httpx"
	"github.com/crownside/storefront/internal/platform/requestctx"
)

// DefaultSessionHeader names the header carrying the anonymous cart session.
const DefaultSessionHeader = "X-Session-ID"

const maxSessionIDLength = 128

// RequireSession extracts the session identifier from the configured header
// and stores it on the request context. Requests without one are rejected.
func RequireSession(header string) func(http.Handler) http.Handler {
	header = strings.TrimSpace(header)
	if header == "" {
		header = DefaultSessionHeader
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := strings.TrimSpace(r.Header.Get(header))
			if sessionID == "" {
				httpx.WriteError(r.Context(), w, httpx.NewError("session_required",
					"a session id header is required", http.StatusBadRequest))
				return
			}
			if len(sessionID) > maxSessionIDLength || !validSessionID(sessionID) {
				httpx.WriteError(r.Context(), w, httpx.NewError("session_invalid",
					"session id contains invalid characters", http.StatusBadRequest))
				return
			}

			ctx := requestctx.WithSessionID(r.Context(), sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func validSessionID(id string) bool {
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return false
		}
	}
	return true
}
