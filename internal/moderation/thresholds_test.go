package moderation

import "testing"

func TestEvaluateDefaults(t *testing.T) {
	e := NewThresholdEngine(nil)

	scores := map[string]float64{
		"harassment": 0.85,
		"hate":       0.1,
		"profanity":  0.2,
	}

	flagged, flags := e.Evaluate(scores, nil)
	if !flagged {
		t.Fatalf("expected flagged with harassment 0.85 >= 0.7")
	}
	if !flags["harassment"] {
		t.Fatalf("expected harassment flag set")
	}
	if flags["hate"] || flags["profanity"] {
		t.Fatalf("expected low scores unflagged: %v", flags)
	}

	// Every category in the fixed set gets a flag, scored or not.
	for _, cat := range Categories {
		if _, ok := flags[cat]; !ok {
			t.Fatalf("missing flag for category %q", cat)
		}
	}
}

func TestEvaluateAllZero(t *testing.T) {
	e := NewThresholdEngine(nil)

	scores := map[string]float64{}
	for _, cat := range Categories {
		scores[cat] = 0.0
	}

	flagged, flags := e.Evaluate(scores, nil)
	if flagged {
		t.Fatalf("expected not flagged for all-zero scores")
	}
	for cat, f := range flags {
		if f {
			t.Fatalf("expected %q unflagged", cat)
		}
	}
}

func TestEvaluateBoundaryInclusive(t *testing.T) {
	e := NewThresholdEngine(map[string]float64{"spam": 0.8})

	// A score exactly at its threshold is flagged.
	flagged, flags := e.Evaluate(map[string]float64{"spam": 0.8}, nil)
	if !flagged || !flags["spam"] {
		t.Fatalf("expected score == threshold to flag, got flagged=%v flags=%v", flagged, flags)
	}

	flagged, flags = e.Evaluate(map[string]float64{"spam": 0.7999}, nil)
	if flagged || flags["spam"] {
		t.Fatalf("expected score just under threshold to pass")
	}
}

func TestEvaluateOverrides(t *testing.T) {
	e := NewThresholdEngine(nil)

	overrides := map[string]float64{"violence": 0.1}

	flagged, flags := e.Evaluate(map[string]float64{"violence": 0.2}, overrides)
	if !flagged || !flags["violence"] {
		t.Fatalf("expected override 0.1 to flag violence at 0.2")
	}

	// Categories without an override keep their defaults.
	flagged, _ = e.Evaluate(map[string]float64{"hate": 0.2}, overrides)
	if flagged {
		t.Fatalf("expected hate 0.2 below default 0.7")
	}
}

func TestEffectiveFallback(t *testing.T) {
	e := NewThresholdEngine(nil)

	if got := e.Effective("unknown_category", nil); got != 0.5 {
		t.Fatalf("expected 0.5 fallback for unknown category, got %v", got)
	}
	if got := e.Effective("unknown_category", map[string]float64{"unknown_category": 0.9}); got != 0.9 {
		t.Fatalf("expected override to win for unknown category, got %v", got)
	}
}

func TestEvaluateAbsentScoresCountAsZero(t *testing.T) {
	e := NewThresholdEngine(map[string]float64{"hate": 0.0})

	// hate is absent from scores, so it scores 0.0 - which meets a 0.0
	// threshold inclusively.
	flagged, flags := e.Evaluate(map[string]float64{}, nil)
	if !flagged || !flags["hate"] {
		t.Fatalf("expected absent score 0.0 to meet threshold 0.0")
	}
}
