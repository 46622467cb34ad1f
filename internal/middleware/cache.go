package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"modgate/internal/cache"
	"modgate/pkg/logging/logging"
)

// BypassHeader skips cache lookup and store for a single call.
const BypassHeader = "X-No-Cache"

// cachedResponse is the stored schema for a whole HTTP response.
// Headers are an ordered list of name/value pairs so duplicate header
// names round-trip unambiguously.
type cachedResponse struct {
	Content    []byte       `json:"content"` // base64 on the wire via encoding/json
	StatusCode int          `json:"status_code"`
	Headers    []headerPair `json:"headers"`
	MediaType  string       `json:"media_type"`
}

type headerPair struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ResponseCache caches whole successful responses keyed by a content
// hash of the request body. A hit replays the stored response
// bit-for-bit with X-Cache: HIT; a miss runs the handler, stores 200s,
// and marks X-Cache: MISS.
//
// Every store failure is fail-open: lookups degrade to a miss, store
// errors are swallowed, the request always completes.
func ResponseCache(store cache.Store, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			if r.Header.Get(BypassHeader) == "true" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			logger := logging.L(ctx)

			body, err := io.ReadAll(r.Body)
			if err != nil {
				logger.Warn("cache middleware body read failed", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			// Hand the body back to the handler.
			r.Body = io.NopCloser(bytes.NewReader(body))

			key := cache.Key(cache.PrefixModerate, body)

			if raw, hit, err := store.Get(ctx, key); err != nil {
				logger.Warn("response cache lookup failed, treating as miss", zap.Error(err))
			} else if hit {
				var cached cachedResponse
				if err := json.Unmarshal(raw, &cached); err != nil {
					logger.Warn("response cache entry corrupt, treating as miss", zap.Error(err))
				} else {
					for _, h := range cached.Headers {
						w.Header().Add(h.Name, h.Value)
					}
					if cached.MediaType != "" {
						w.Header().Set("Content-Type", cached.MediaType)
					}
					w.Header().Set("X-Cache", "HIT")
					w.WriteHeader(cached.StatusCode)
					_, _ = w.Write(cached.Content)
					return
				}
			}

			// Miss: buffer the downstream response so a 200 can be stored
			// before it is flushed to the client.
			rec := &bufferedResponse{header: make(http.Header), statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.statusCode == http.StatusOK {
				entry := cachedResponse{
					Content:    rec.body.Bytes(),
					StatusCode: rec.statusCode,
					Headers:    snapshotHeaders(rec.header),
					MediaType:  rec.header.Get("Content-Type"),
				}
				if payload, err := json.Marshal(entry); err == nil {
					if err := store.Set(ctx, key, payload, ttl); err != nil {
						logger.Warn("response cache store failed", zap.Error(err))
					}
				}
			}

			for name, values := range rec.header {
				for _, v := range values {
					w.Header().Add(name, v)
				}
			}
			w.Header().Set("X-Cache", "MISS")
			w.WriteHeader(rec.statusCode)
			_, _ = w.Write(rec.body.Bytes())
		})
	}
}

func snapshotHeaders(h http.Header) []headerPair {
	pairs := make([]headerPair, 0, len(h))
	for name, values := range h {
		for _, v := range values {
			pairs = append(pairs, headerPair{Name: name, Value: v})
		}
	}
	return pairs
}

// bufferedResponse captures status, headers, and body in memory.
type bufferedResponse struct {
	header      http.Header
	statusCode  int
	wroteHeader bool
	body        bytes.Buffer
}

func (b *bufferedResponse) Header() http.Header { return b.header }

func (b *bufferedResponse) WriteHeader(code int) {
	if b.wroteHeader {
		return
	}
	b.wroteHeader = true
	b.statusCode = code
}

func (b *bufferedResponse) Write(p []byte) (int, error) {
	if !b.wroteHeader {
		b.WriteHeader(http.StatusOK)
	}
	return b.body.Write(p)
}
