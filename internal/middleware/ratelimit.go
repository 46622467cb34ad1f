package middleware

import (
	"net"
	"net/http"
	"strconv"

	"modgate/internal/metrics"
	"modgate/internal/ratelimit"
)

// RateLimit applies the sliding window limiter per (client IP, path).
// Denials answer 429 with a Retry-After header. A nil limiter is a
// passthrough, which is how the global disable switch works.
func RateLimit(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := limiter.Admit(r.Context(), clientIP(r), r.URL.Path)
			if !decision.Allowed {
				metrics.RateLimitDeniedTotal.Inc()

				retryAfter := int(decision.RetryAfter.Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"detail":"Rate limit exceeded"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP assumes chi's RealIP middleware already rewrote RemoteAddr
// for proxied requests.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
