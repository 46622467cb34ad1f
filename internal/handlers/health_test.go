package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modgate/internal/health"
)

type stubPinger struct{ err error }

func (s *stubPinger) Ping(ctx context.Context) error { return s.err }

func getHealth(h *HealthHandler) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, req)
	return rec
}

func TestHealthAllOperational(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	svc := health.NewService(client, &stubPinger{}, &stubPinger{}, "text-model", "image-model", "1.0.0")
	rec := getHealth(NewHealthHandler(svc))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp health.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "1.0.0", resp.Version)
	assert.Equal(t, "operational", resp.Components["api"].Status)
	assert.Equal(t, "operational", resp.Components["redis"].Status)
	assert.Equal(t, "operational", resp.Components["text_scorer"].Status)
	assert.Equal(t, "text-model", resp.Components["text_scorer"].Name)
}

func TestHealthDegradedWithoutRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mr.Close()

	svc := health.NewService(client, &stubPinger{}, &stubPinger{}, "text-model", "image-model", "1.0.0")
	rec := getHealth(NewHealthHandler(svc))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp health.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "unavailable", resp.Components["redis"].Status)
}

func TestHealthScorerOutageStaysHealthy(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	svc := health.NewService(client,
		&stubPinger{err: errors.New("connection refused")},
		&stubPinger{}, "text-model", "image-model", "1.0.0")
	rec := getHealth(NewHealthHandler(svc))

	// Scorer checks are informational; only the store gates readiness.
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp health.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "unavailable", resp.Components["text_scorer"].Status)
	assert.Equal(t, "operational", resp.Components["image_scorer"].Status)
}
