package moderation

// ThresholdEngine maps raw category scores to boolean flags.
//
// The effective threshold for a category is the request override if
// supplied, else the configured default, else 0.5 for categories the
// configuration does not know about. Comparison is inclusive: a score
// exactly equal to its threshold flags the category.
type ThresholdEngine struct {
	defaults map[string]float64
}

func NewThresholdEngine(defaults map[string]float64) *ThresholdEngine {
	merged := make(map[string]float64, len(DefaultThresholds))
	for cat, v := range DefaultThresholds {
		merged[cat] = v
	}
	for cat, v := range defaults {
		merged[cat] = v
	}
	return &ThresholdEngine{defaults: merged}
}

// Effective resolves the threshold for one category.
func (e *ThresholdEngine) Effective(category string, overrides map[string]float64) float64 {
	if overrides != nil {
		if t, ok := overrides[category]; ok {
			return t
		}
	}
	if t, ok := e.defaults[category]; ok {
		return t
	}
	return fallbackThreshold
}

// Evaluate applies thresholds across the full fixed category set.
// Categories absent from scores count as 0.0. flagged is true iff at
// least one category's score reaches its effective threshold.
func (e *ThresholdEngine) Evaluate(scores map[string]float64, overrides map[string]float64) (bool, map[string]bool) {
	flags := make(map[string]bool, len(Categories))
	flagged := false

	for _, category := range Categories {
		score := scores[category]
		isFlagged := score >= e.Effective(category, overrides)
		flags[category] = isFlagged
		if isFlagged {
			flagged = true
		}
	}

	return flagged, flags
}
