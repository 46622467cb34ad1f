package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"modgate/internal/cache"
	"modgate/internal/moderation"
)

type stubTextScorer struct {
	scores map[string]float64
	err    error
}

func (s *stubTextScorer) ScoreText(ctx context.Context, text, model string) (map[string]float64, error) {
	return s.scores, s.err
}

type stubImageScorer struct {
	scores map[string]float64
	err    error
}

func (s *stubImageScorer) ScoreImage(ctx context.Context, image []byte) (map[string]float64, error) {
	return s.scores, s.err
}

type stubImageSource struct {
	data []byte
	err  error
}

func (s *stubImageSource) Resolve(ctx context.Context, input string) ([]byte, error) {
	return s.data, s.err
}

func newModerateHandler(t *testing.T, text *stubTextScorer, image *stubImageScorer, source *stubImageSource) *ModerateHandler {
	t.Helper()

	store := cache.NewMemoryStore(time.Minute)
	t.Cleanup(func() { store.Close() })

	o := moderation.NewOrchestrator(text, image, source, store,
		moderation.NewThresholdEngine(nil), moderation.OrchestratorConfig{
			CacheTTL:     time.Minute,
			DefaultModel: "text-model",
			ImageModel:   "image-model",
			Version:      "vtest",
		})
	return NewModerateHandler(o)
}

func postModerate(h *ModerateHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/moderate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Moderate(rec, req)
	return rec
}

type errorEnvelope struct {
	Error struct {
		Type      string `json:"type"`
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
		Timestamp string `json:"timestamp"`
		Details   []struct {
			Field string `json:"field"`
			Issue string `json:"issue"`
		} `json:"details"`
	} `json:"error"`
}

func TestModerateSuccess(t *testing.T) {
	h := newModerateHandler(t,
		&stubTextScorer{scores: map[string]float64{"harassment": 0.9, "spam": 0.1}},
		&stubImageScorer{}, &stubImageSource{})

	rec := postModerate(h, `{"inputs":[{"text":"you are awful"}]}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}

	var resp moderation.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.TotalItems != 1 || len(resp.Results) != 1 {
		t.Fatalf("unexpected batch shape: %+v", resp)
	}
	result := resp.Results[0]
	if !result.Flagged || !result.Categories["harassment"] {
		t.Fatalf("expected harassment flagged at 0.9: %+v", result)
	}
	if result.Categories["spam"] {
		t.Fatalf("spam 0.1 must not flag")
	}
	if !strings.HasPrefix(result.RequestID, "req_") {
		t.Fatalf("unexpected request id %q", result.RequestID)
	}
}

func TestModerateInvalidJSON(t *testing.T) {
	h := newModerateHandler(t, &stubTextScorer{}, &stubImageScorer{}, &stubImageSource{})

	rec := postModerate(h, `{not json`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	var env errorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Error.Type != "validation_error" {
		t.Fatalf("unexpected error type %q", env.Error.Type)
	}
	if !strings.HasPrefix(env.Error.RequestID, "req_error_") {
		t.Fatalf("unexpected error id %q", env.Error.RequestID)
	}
	if env.Error.Timestamp == "" {
		t.Fatalf("expected timestamp in envelope")
	}
}

func TestModerateValidationDetails(t *testing.T) {
	h := newModerateHandler(t, &stubTextScorer{}, &stubImageScorer{}, &stubImageSource{})

	rec := postModerate(h, `{"inputs":[{"text":""}],"thresholds":{"sexual":1.5}}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	var env errorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Error.Type != "validation_error" || env.Error.Message != "Invalid input format" {
		t.Fatalf("unexpected envelope: %+v", env.Error)
	}
	if len(env.Error.Details) != 2 {
		t.Fatalf("expected two field issues, got %+v", env.Error.Details)
	}

	fields := map[string]bool{}
	for _, d := range env.Error.Details {
		fields[d.Field] = true
	}
	if !fields["inputs[0].text"] || !fields["thresholds.sexual"] {
		t.Fatalf("unexpected detail fields: %v", fields)
	}
}

func TestModerateEmptyInputs(t *testing.T) {
	h := newModerateHandler(t, &stubTextScorer{}, &stubImageScorer{}, &stubImageSource{})

	rec := postModerate(h, `{"inputs":[]}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "at least one input is required") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestModerateScoringFailure(t *testing.T) {
	h := newModerateHandler(t,
		&stubTextScorer{err: errors.New("inference backend down")},
		&stubImageScorer{}, &stubImageSource{})

	rec := postModerate(h, `{"inputs":[{"text":"hello"}]}`)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	var env errorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Error.Type != "processing_error" {
		t.Fatalf("unexpected error type %q", env.Error.Type)
	}
	if !strings.Contains(env.Error.Message, "Failed to process input") {
		t.Fatalf("unexpected message %q", env.Error.Message)
	}
}

func TestModerateImageFailureSurfacesMessage(t *testing.T) {
	h := newModerateHandler(t,
		&stubTextScorer{scores: map[string]float64{}},
		&stubImageScorer{},
		&stubImageSource{err: errors.New("unsupported format: bmp")})

	rec := postModerate(h, `{"inputs":[{"text":"caption","image":"aW1n"}]}`)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "unsupported format: bmp") {
		t.Fatalf("expected image error surfaced, got %s", rec.Body.String())
	}
}
