package moderation

import "testing"

func TestMergeScoresMaxWins(t *testing.T) {
	text := map[string]float64{"sexual": 0.3, "violence": 0.9}
	image := map[string]float64{"sexual": 0.8, "violence": 0.2}

	merged := MergeScores(text, image, nil)

	if merged["sexual"] != 0.8 {
		t.Fatalf("expected max(0.3, 0.8) = 0.8, got %v", merged["sexual"])
	}
	if merged["violence"] != 0.9 {
		t.Fatalf("expected max(0.9, 0.2) = 0.9, got %v", merged["violence"])
	}
}

func TestMergeScoresTextOnlyPassthrough(t *testing.T) {
	text := map[string]float64{"harassment": 0.5}
	image := map[string]float64{}

	merged := MergeScores(text, image, nil)
	if merged["harassment"] != 0.5 {
		t.Fatalf("expected text-only category to pass through, got %v", merged)
	}
}

func TestMergeScoresImageOnlyCategory(t *testing.T) {
	text := map[string]float64{"harassment": 0.1}
	image := map[string]float64{"sexual": 0.7}

	// No filter: image-only category is added.
	merged := MergeScores(text, image, nil)
	if merged["sexual"] != 0.7 {
		t.Fatalf("expected image-only category added, got %v", merged)
	}

	// Filter excludes it.
	merged = MergeScores(text, image, map[string]struct{}{"harassment": {}})
	if _, ok := merged["sexual"]; ok {
		t.Fatalf("expected image-only category filtered out, got %v", merged)
	}

	// Filter includes it.
	merged = MergeScores(text, image, map[string]struct{}{"sexual": {}})
	if merged["sexual"] != 0.7 {
		t.Fatalf("expected requested image-only category kept, got %v", merged)
	}
}

func TestMergeScoresDoesNotMutateInputs(t *testing.T) {
	text := map[string]float64{"spam": 0.2}
	image := map[string]float64{"spam": 0.9}

	_ = MergeScores(text, image, nil)

	if text["spam"] != 0.2 || image["spam"] != 0.9 {
		t.Fatalf("inputs mutated: text=%v image=%v", text, image)
	}
}
