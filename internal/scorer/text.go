package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const maxTextSize = 512 * 1024 // 512KB per text input

// TextClient scores text against the moderation categories by calling
// the text inference service.
type TextClient struct {
	*client
}

func NewTextClient(cfg Config, logger *zap.Logger) (*TextClient, error) {
	c, err := newClient(cfg, logger, "textscorer")
	if err != nil {
		return nil, err
	}
	return &TextClient{client: c}, nil
}

type textScoreRequest struct {
	Text  string `json:"text"`
	Model string `json:"model,omitempty"`
}

// ScoreText returns per-category scores in [0,1] for the given text.
func (c *TextClient) ScoreText(parentCtx context.Context, text, model string) (map[string]float64, error) {
	if text == "" {
		return nil, fmt.Errorf("scorer: text is empty")
	}
	if len(text) > maxTextSize {
		return nil, fmt.Errorf("scorer: text too large (%d bytes, max %d)", len(text), maxTextSize)
	}

	body, err := json.Marshal(textScoreRequest{Text: text, Model: model})
	if err != nil {
		return nil, fmt.Errorf("scorer: marshal request: %w", err)
	}

	return c.score(parentCtx, c.cfg.BaseURL+"/v1/score/text", body)
}

// Ping probes the scoring service's health endpoint.
func (c *TextClient) Ping(ctx context.Context) error {
	return c.client.ping(ctx)
}

// score posts the body and decodes the shared score response shape.
// Used by both the text and image clients.
func (c *client) score(parentCtx context.Context, url string, body []byte) (map[string]float64, error) {
	start := time.Now()

	// Per-request timeout (0 = only use parentCtx)
	var ctx context.Context
	var cancel context.CancelFunc
	if c.cfg.UpstreamTimeout > 0 {
		ctx, cancel = context.WithTimeout(parentCtx, c.cfg.UpstreamTimeout)
	} else {
		ctx, cancel = context.WithCancel(parentCtx)
	}
	defer cancel()

	// doOnce builds a fresh *http.Request for each attempt
	doOnce := func(ctx context.Context, body []byte) (*http.Response, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("scorer: build HTTP request: %w", err)
		}
		if c.cfg.APIKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		return c.httpClient.Do(httpReq)
	}

	resp, err := c.doWithRetry(ctx, body, doOnce)
	if err != nil {
		c.logger.Error("scorer request failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)

		var serr scoreErrorResponse
		if err := json.Unmarshal(raw, &serr); err == nil && serr.Error.Message != "" {
			c.logger.Error("scorer upstream error",
				zap.Int("status", resp.StatusCode),
				zap.String("error_type", serr.Error.Type),
				zap.String("error_message", serr.Error.Message),
			)
			return nil, fmt.Errorf("scorer: upstream %d: %s (%s)",
				resp.StatusCode, serr.Error.Message, serr.Error.Type)
		}

		c.logger.Error("scorer upstream error",
			zap.Int("status", resp.StatusCode),
			zap.String("body", truncate(string(raw), 200)),
		)
		return nil, fmt.Errorf("scorer: upstream %d: %s",
			resp.StatusCode, truncate(string(raw), 200))
	}

	var sResp scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&sResp); err != nil {
		return nil, fmt.Errorf("scorer: decode upstream response: %w", err)
	}
	if sResp.Scores == nil {
		return nil, fmt.Errorf("scorer: upstream returned no scores")
	}

	c.logger.Debug("scorer request completed",
		zap.Int("category_count", len(sResp.Scores)),
		zap.Duration("duration", time.Since(start)),
	)

	return sResp.Scores, nil
}

// ping issues a short health probe against the service.
func (c *client) ping(parentCtx context.Context) error {
	ctx, cancel := context.WithTimeout(parentCtx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("scorer: health status %d", resp.StatusCode)
	}
	return nil
}

// truncate limits string length for logging
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
