package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"appraise/internal/platform/requestctx"
)

const requestIDHeader = "X-Request-ID"

// maxRequestIDLen bounds what we accept from callers so log lines and
// audit rows stay readable.
const maxRequestIDLen = 64

// RequestID tags every request with an id, echoing a well-formed inbound
// X-Request-ID and minting a fresh one otherwise.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if !validRequestID(id) {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := requestctx.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetRequestID(ctx context.Context) string {
	return requestctx.RequestID(ctx)
}

func validRequestID(id string) bool {
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
