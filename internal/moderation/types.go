package moderation

import (
	"fmt"

	"modgate/internal/apierr"
)

// Input is a single item to moderate. Image is optional and may be a
// URL, a plain base64 payload, or a data URI.
type Input struct {
	Text  string `json:"text"`
	Image string `json:"image,omitempty"`
}

// Request is the parsed body of POST /v1/moderate.
type Request struct {
	Inputs     []Input            `json:"inputs"`
	Model      string             `json:"model,omitempty"`
	Thresholds map[string]float64 `json:"thresholds,omitempty"`
	// ReturnScores defaults to true when absent.
	ReturnScores *bool `json:"return_scores,omitempty"`
}

// IncludeScores reports whether raw scores belong in the response.
func (r *Request) IncludeScores() bool {
	return r.ReturnScores == nil || *r.ReturnScores
}

// RequestedCategories derives the category filter from the override
// threshold map. Nil means no filtering.
func (r *Request) RequestedCategories() map[string]struct{} {
	if len(r.Thresholds) == 0 {
		return nil
	}
	requested := make(map[string]struct{}, len(r.Thresholds))
	for category := range r.Thresholds {
		requested[category] = struct{}{}
	}
	return requested
}

// Validate checks the request shape and threshold ranges. It returns
// field-level details, empty when the request is valid.
func (r *Request) Validate() []apierr.Detail {
	var details []apierr.Detail

	if len(r.Inputs) == 0 {
		details = append(details, apierr.Detail{
			Field: "inputs",
			Issue: "at least one input is required",
		})
	}

	for i, input := range r.Inputs {
		if input.Text == "" {
			details = append(details, apierr.Detail{
				Field: fmt.Sprintf("inputs[%d].text", i),
				Issue: "text must not be empty",
			})
		}
	}

	for category, threshold := range r.Thresholds {
		if threshold < 0.0 || threshold > 1.0 {
			details = append(details, apierr.Detail{
				Field: "thresholds." + category,
				Issue: "threshold must be between 0.0 and 1.0",
			})
		}
	}

	return details
}

// ModelInfo records which models produced a result.
type ModelInfo struct {
	TextModel  string `json:"text_model"`
	ImageModel string `json:"image_model,omitempty"`
	Version    string `json:"version"`
}

// Result is the outcome for one input item. Immutable once built.
type Result struct {
	RequestID        string             `json:"request_id"`
	Flagged          bool               `json:"flagged"`
	Categories       map[string]bool    `json:"categories"`
	CategoryScores   map[string]float64 `json:"category_scores,omitempty"`
	ModelInfo        ModelInfo          `json:"model_info"`
	ProcessingTimeMs int64              `json:"processing_time_ms"`
	Timestamp        string             `json:"timestamp"`
}

// Response is the body of a successful POST /v1/moderate.
type Response struct {
	Results          []Result `json:"results"`
	TotalItems       int      `json:"total_items"`
	ProcessingTimeMs int64    `json:"processing_time_ms"`
}
