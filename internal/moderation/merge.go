package moderation

// MergeScores combines text and image category scores into one map.
//
// A category present in both keeps the maximum of the two scores: the
// modalities are independent risk signals, and a high-confidence hit in
// either must dominate. Categories only the image scorer produced are
// added when requested is nil or contains them. Text-only categories
// pass through untouched.
//
// The input maps are never mutated.
func MergeScores(text, image map[string]float64, requested map[string]struct{}) map[string]float64 {
	merged := make(map[string]float64, len(text)+len(image))
	for category, score := range text {
		merged[category] = score
	}

	for category, score := range image {
		if existing, ok := merged[category]; ok {
			if score > existing {
				merged[category] = score
			}
			continue
		}
		if requested == nil {
			merged[category] = score
			continue
		}
		if _, ok := requested[category]; ok {
			merged[category] = score
		}
	}

	return merged
}
