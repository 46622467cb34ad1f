package scorer

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

const maxImagePayload = 16 * 1024 * 1024 // oversized inputs are rejected upstream of this client

// ImageClient scores decoded image bytes by calling the image
// inference service.
type ImageClient struct {
	*client
}

func NewImageClient(cfg Config, logger *zap.Logger) (*ImageClient, error) {
	c, err := newClient(cfg, logger, "imagescorer")
	if err != nil {
		return nil, err
	}
	return &ImageClient{client: c}, nil
}

type imageScoreRequest struct {
	// Image is base64-encoded on the wire by encoding/json.
	Image []byte `json:"image"`
}

// ScoreImage returns per-category scores in [0,1] for the raw image.
func (c *ImageClient) ScoreImage(parentCtx context.Context, image []byte) (map[string]float64, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("scorer: image is empty")
	}
	if len(image) > maxImagePayload {
		return nil, fmt.Errorf("scorer: image too large (%d bytes, max %d)", len(image), maxImagePayload)
	}

	body, err := json.Marshal(imageScoreRequest{Image: image})
	if err != nil {
		return nil, fmt.Errorf("scorer: marshal request: %w", err)
	}

	c.logger.Debug("image score request", zap.Int("image_bytes", len(image)))

	return c.score(parentCtx, c.cfg.BaseURL+"/v1/score/image", body)
}

// Ping probes the scoring service's health endpoint.
func (c *ImageClient) Ping(ctx context.Context) error {
	return c.client.ping(ctx)
}
