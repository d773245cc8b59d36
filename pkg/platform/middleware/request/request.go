// Package request provides request ID middleware for correlating log lines
// and audit events across a single request.
package request

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"cobal/pkg/requestcontext"
)

// HeaderRequestID is the header honored for caller-supplied request IDs and
// echoed on every response.
const HeaderRequestID = "X-Request-ID"

// Middleware assigns a request ID to each request, preferring one supplied by
// the caller so IDs stay stable across proxies.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(HeaderRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, reqID)
		ctx := requestcontext.WithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	return requestcontext.RequestID(ctx)
}
