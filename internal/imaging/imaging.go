// Package imaging resolves the request's image field into validated
// raw bytes. It handles URL fetches with a hard timeout, plain base64
// payloads, and data URIs, and enforces size, dimension, and format
// limits before any inference work happens.
package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"

	// Registered so image.DecodeConfig recognizes the allowed formats.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"go.uber.org/zap"

	"modgate/pkg/logging/logging"
)

var allowedFormats = map[string]struct{}{
	"jpeg": {},
	"png":  {},
	"webp": {},
	"gif":  {},
}

type Limits struct {
	MaxSizeMB    int
	MaxDimension int
}

func (l Limits) withDefaults() Limits {
	if l.MaxSizeMB <= 0 {
		l.MaxSizeMB = 10
	}
	if l.MaxDimension <= 0 {
		l.MaxDimension = 4096
	}
	return l
}

// Fetcher resolves and validates image inputs.
type Fetcher struct {
	httpClient *http.Client
	limits     Limits
}

// NewFetcher builds a Fetcher. fetchTimeout bounds every URL download;
// zero means 10s.
func NewFetcher(limits Limits, fetchTimeout time.Duration) *Fetcher {
	if fetchTimeout <= 0 {
		fetchTimeout = 10 * time.Second
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: fetchTimeout},
		limits:     limits.withDefaults(),
	}
}

// Resolve turns an image field value into validated raw bytes. The
// input may be an http(s) URL, a data URI, or plain base64.
func (f *Fetcher) Resolve(ctx context.Context, input string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		data, err = f.fetchURL(ctx, input)
	} else {
		data, err = decodeBase64(input)
	}
	if err != nil {
		return nil, err
	}

	if err := f.validate(data); err != nil {
		return nil, err
	}
	return data, nil
}

func (f *Fetcher) fetchURL(ctx context.Context, url string) ([]byte, error) {
	logger := logging.L(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid image URL: %w", err)
	}

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch image: HTTP %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("URL does not point to an image: %s", contentType)
	}

	maxBytes := int64(f.limits.MaxSizeMB) << 20
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("image too large (max %dMB)", f.limits.MaxSizeMB)
	}

	logger.Debug("image fetched",
		zap.String("url", url),
		zap.Int("bytes", len(data)),
		zap.Duration("duration", time.Since(start)),
	)

	return data, nil
}

// decodeBase64 accepts plain base64 and data URIs
// (data:image/png;base64,....).
func decodeBase64(input string) ([]byte, error) {
	if strings.HasPrefix(input, "data:") {
		idx := strings.Index(input, ";base64,")
		if idx < 0 {
			return nil, fmt.Errorf("invalid data URI format")
		}
		input = input[idx+len(";base64,"):]
	}

	data, err := base64.StdEncoding.DecodeString(input)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 image: %w", err)
	}
	return data, nil
}

// validate enforces the size cap, format allowlist, and dimension cap.
// Only the image header is decoded; full pixel decode stays on the
// inference side.
func (f *Fetcher) validate(data []byte) error {
	maxBytes := int64(f.limits.MaxSizeMB) << 20
	if int64(len(data)) > maxBytes {
		return fmt.Errorf("image too large: %.2fMB (max %dMB)",
			float64(len(data))/(1<<20), f.limits.MaxSizeMB)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("invalid image: %w", err)
	}

	if _, ok := allowedFormats[format]; !ok {
		return fmt.Errorf("unsupported format: %s", format)
	}

	if cfg.Width > f.limits.MaxDimension || cfg.Height > f.limits.MaxDimension {
		return fmt.Errorf("image dimensions too large: %dx%d (max %dx%d)",
			cfg.Width, cfg.Height, f.limits.MaxDimension, f.limits.MaxDimension)
	}

	return nil
}
