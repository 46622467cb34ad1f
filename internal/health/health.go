// Package health aggregates component statuses for GET /v1/health.
package health

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"modgate/internal/apierr"
	"modgate/pkg/logging/logging"
)

// Pinger is a component that can be probed for liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ComponentStatus describes one component in the health response.
type ComponentStatus struct {
	Status    string `json:"status"`
	LatencyMs *int64 `json:"latency_ms,omitempty"`
	Name      string `json:"name,omitempty"`
}

// Response is the body of GET /v1/health.
type Response struct {
	Status        string                     `json:"status"`
	Timestamp     string                     `json:"timestamp"`
	UptimeSeconds float64                    `json:"uptime_seconds"`
	Components    map[string]ComponentStatus `json:"components"`
	Version       string                     `json:"version"`
}

type Service struct {
	start       time.Time
	redis       *redis.Client
	textScorer  Pinger
	imageScorer Pinger
	textModel   string
	imageModel  string
	version     string
}

func NewService(redisClient *redis.Client, textScorer, imageScorer Pinger, textModel, imageModel, version string) *Service {
	return &Service{
		start:       time.Now(),
		redis:       redisClient,
		textScorer:  textScorer,
		imageScorer: imageScorer,
		textModel:   textModel,
		imageModel:  imageModel,
		version:     version,
	}
}

// Check probes every component. healthy is false when the shared store
// is down; scorer outages only mark their component, the store is the
// critical dependency.
func (s *Service) Check(ctx context.Context) (*Response, bool) {
	logger := logging.L(ctx)
	components := make(map[string]ComponentStatus)

	// If this code runs, the API is up.
	components["api"] = ComponentStatus{Status: "operational"}

	redisHealthy := false
	if s.redis != nil {
		start := time.Now()
		if err := s.redis.Ping(ctx).Err(); err != nil {
			logger.Warn("health check: redis unavailable", zap.Error(err))
			components["redis"] = ComponentStatus{Status: "unavailable"}
		} else {
			latency := time.Since(start).Milliseconds()
			redisHealthy = true
			components["redis"] = ComponentStatus{Status: "operational", LatencyMs: &latency}
		}
	} else {
		components["redis"] = ComponentStatus{Status: "unavailable"}
	}

	components["text_scorer"] = s.probeScorer(ctx, s.textScorer, s.textModel)
	components["image_scorer"] = s.probeScorer(ctx, s.imageScorer, s.imageModel)

	overall := "healthy"
	if !redisHealthy {
		overall = "degraded"
		logger.Warn("health check: running in degraded mode")
	}

	return &Response{
		Status:        overall,
		Timestamp:     apierr.Timestamp(),
		UptimeSeconds: time.Since(s.start).Seconds(),
		Components:    components,
		Version:       s.version,
	}, redisHealthy
}

func (s *Service) probeScorer(ctx context.Context, p Pinger, model string) ComponentStatus {
	if p == nil {
		return ComponentStatus{Status: "not_configured"}
	}
	start := time.Now()
	if err := p.Ping(ctx); err != nil {
		return ComponentStatus{Status: "unavailable", Name: model}
	}
	latency := time.Since(start).Milliseconds()
	return ComponentStatus{Status: "operational", LatencyMs: &latency, Name: model}
}
