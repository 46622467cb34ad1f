package middleware

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"modgate/internal/apierr"
	"modgate/pkg/logging/logging"
)

// Timeout cancels the request context after d and returns 504 if still
// running. Long batches with many image fetches are the usual trigger.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			r = r.WithContext(ctx)

			// The handler writes into a buffer so a timed-out handler can
			// never interleave its output with the 504 on the real writer.
			rec := &bufferedResponse{header: make(http.Header), statusCode: http.StatusOK}
			done := make(chan struct{})
			go func() {
				next.ServeHTTP(rec, r)
				close(done)
			}()

			select {
			case <-done:
				for name, values := range rec.header {
					for _, v := range values {
						w.Header().Add(name, v)
					}
				}
				w.WriteHeader(rec.statusCode)
				_, _ = w.Write(rec.body.Bytes())
			case <-ctx.Done():
				logger := logging.L(ctx)
				logger.Warn("request timed out",
					zap.Duration("timeout", d),
					zap.String("path", r.URL.Path),
				)
				apierr.Write(w, http.StatusGatewayTimeout,
					apierr.TypeInternal, "Request processing timed out")
			}
		})
	}
}
