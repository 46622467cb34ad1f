package moderation

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"modgate/internal/apierr"
	"modgate/internal/cache"
	"modgate/pkg/logging/logging"
)

// TextScorer scores text against the category set. Implemented by the
// inference client; failures surface as scoring errors.
type TextScorer interface {
	ScoreText(ctx context.Context, text, model string) (map[string]float64, error)
}

// ImageScorer scores a decoded image payload.
type ImageScorer interface {
	ScoreImage(ctx context.Context, image []byte) (map[string]float64, error)
}

// ImageSource turns the request's image field (URL, base64, data URI)
// into validated raw bytes.
type ImageSource interface {
	Resolve(ctx context.Context, input string) ([]byte, error)
}

// Orchestrator coordinates scoring for a batch: per item it decides the
// image-cache hit/miss, runs text and (if needed) image scoring
// concurrently, merges, thresholds, and assembles the result.
type Orchestrator struct {
	text       TextScorer
	image      ImageScorer
	images     ImageSource
	imageCache cache.Store
	cacheTTL   time.Duration
	thresholds *ThresholdEngine

	defaultModel string
	imageModel   string
	version      string

	// FailFast aborts the batch on the first item failure. When false,
	// failed items are logged and dropped from the response instead.
	FailFast bool
}

type OrchestratorConfig struct {
	CacheTTL     time.Duration
	DefaultModel string
	ImageModel   string
	Version      string
}

func NewOrchestrator(
	text TextScorer,
	image ImageScorer,
	images ImageSource,
	imageCache cache.Store,
	thresholds *ThresholdEngine,
	cfg OrchestratorConfig,
) *Orchestrator {
	return &Orchestrator{
		text:         text,
		image:        image,
		images:       images,
		imageCache:   imageCache,
		cacheTTL:     cfg.CacheTTL,
		thresholds:   thresholds,
		defaultModel: cfg.DefaultModel,
		imageModel:   cfg.ImageModel,
		version:      cfg.Version,
		FailFast:     true,
	}
}

// Moderate processes each input independently and in request order.
func (o *Orchestrator) Moderate(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()
	logger := logging.L(ctx)

	model := req.Model
	if model == "" {
		model = o.defaultModel
	}
	requested := req.RequestedCategories()

	results := make([]Result, 0, len(req.Inputs))
	for i, input := range req.Inputs {
		result, err := o.moderateItem(ctx, input, req, requested, model)
		if err != nil {
			if o.FailFast {
				logger.Error("item processing failed",
					zap.Int("input_index", i),
					zap.Error(err),
				)
				return nil, err
			}
			logger.Warn("item processing failed, dropping item",
				zap.Int("input_index", i),
				zap.Error(err),
			)
			continue
		}
		results = append(results, *result)
	}

	return &Response{
		Results:          results,
		TotalItems:       len(req.Inputs),
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

// moderateItem runs the per-item state machine: text scoring plus, when
// an image is present and not already cached, concurrent image
// resolution and scoring, then merge, threshold, assemble.
func (o *Orchestrator) moderateItem(
	ctx context.Context,
	input Input,
	req *Request,
	requested map[string]struct{},
	model string,
) (*Result, error) {
	start := time.Now()
	logger := logging.L(ctx)

	// Image cache check happens before any fetch or decode: the key is
	// a pure function of the image field bytes, so a hit skips network
	// and inference entirely.
	var (
		imageScores map[string]float64
		imageCached bool
		imageKey    string
	)
	if input.Image != "" {
		imageKey = cache.Key(cache.PrefixImage, []byte(input.Image))

		cachedBytes, hit, err := o.imageCache.Get(ctx, imageKey)
		if err != nil {
			// Cache is best-effort; treat as miss.
			logger.Warn("image cache get failed", zap.Error(err))
		}
		if hit {
			if err := json.Unmarshal(cachedBytes, &imageScores); err != nil {
				logger.Warn("image cache entry corrupt, rescoring", zap.Error(err))
				imageScores = nil
			} else {
				imageCached = true
				logger.Debug("image cache hit", zap.String("cache_key", imageKey))
			}
		}
	}

	// Fork-join: text scoring always runs; image scoring joins it only
	// on a cache miss. Each goroutine writes only its own variable.
	var textScores map[string]float64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		scores, err := o.text.ScoreText(gctx, input.Text, model)
		if err != nil {
			return apierr.Scoring(err)
		}
		textScores = scores
		return nil
	})

	scoredFresh := input.Image != "" && !imageCached
	if scoredFresh {
		g.Go(func() error {
			raw, err := o.images.Resolve(gctx, input.Image)
			if err != nil {
				return apierr.Asset(err)
			}
			scores, err := o.image.ScoreImage(gctx, raw)
			if err != nil {
				return apierr.Scoring(err)
			}
			imageScores = scores
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if scoredFresh {
		if payload, err := json.Marshal(imageScores); err == nil {
			if err := o.imageCache.Set(ctx, imageKey, payload, o.cacheTTL); err != nil {
				logger.Warn("image cache set failed", zap.Error(err))
			}
		}
	}

	scores := textScores
	if imageScores != nil {
		scores = MergeScores(textScores, imageScores, requested)
	}

	// Thresholds apply to the merged scores; the text-only pass alone
	// would miss flags the image signal pushes over the line.
	flagged, flags := o.thresholds.Evaluate(scores, req.Thresholds)

	if requested != nil {
		scores = filterByCategory(scores, requested)
		flags = filterByCategory(flags, requested)
	}

	result := &Result{
		RequestID:  apierr.NewRequestID(),
		Flagged:    flagged,
		Categories: flags,
		ModelInfo: ModelInfo{
			TextModel: model,
			Version:   o.version,
		},
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		Timestamp:        apierr.Timestamp(),
	}
	if input.Image != "" {
		result.ModelInfo.ImageModel = o.imageModel
	}
	if req.IncludeScores() {
		result.CategoryScores = scores
	}

	return result, nil
}

func filterByCategory[V any](m map[string]V, requested map[string]struct{}) map[string]V {
	filtered := make(map[string]V, len(requested))
	for category := range requested {
		if v, ok := m[category]; ok {
			filtered[category] = v
		}
	}
	return filtered
}
