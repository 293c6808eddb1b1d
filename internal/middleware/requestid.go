// Package middleware provides HTTP middleware for arbiter.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/arbiterhq/arbiter/internal/logger"
)

const headerRequestID = "X-Request-ID"

// maxRequestIDLen caps inbound correlation IDs so a client cannot inflate
// every log line emitted for its request.
const maxRequestIDLen = 64

// RequestID adopts the caller's X-Request-ID when it is usable, otherwise
// assigns a fresh UUID. The ID rides the request context for log
// correlation and is echoed on the response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if !usableRequestID(id) {
			id = uuid.NewString()
		}

		ctx := logger.WithRequestID(r.Context(), id)
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// usableRequestID accepts IDs that are safe to embed verbatim in log
// lines. Anything else, including control characters a client could use
// to forge log entries, is replaced.
func usableRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-' || c == '_' || c == '.':
		default:
			return false
		}
	}
	return true
}
