package moderation

// Categories is the fixed, closed set of moderation dimensions. Every
// result carries a flag for each of these, whether or not the scorer
// produced a score for it.
var Categories = []string{
	"harassment",
	"hate",
	"profanity",
	"sexual",
	"spam",
	"violence",
}

// DefaultThresholds are the shipped per-category cutoffs, used when
// configuration does not supply one.
var DefaultThresholds = map[string]float64{
	"harassment": 0.7,
	"hate":       0.7,
	"profanity":  0.6,
	"sexual":     0.7,
	"spam":       0.8,
	"violence":   0.6,
}

// fallbackThreshold applies when a category is wholly unknown to
// configuration.
const fallbackThreshold = 0.5
