package clustering

import "strings"

// SourceConfidenceTier is the closed enum for a cluster's source diversity.
type SourceConfidenceTier string

const (
	SourceConfidenceHigh   SourceConfidenceTier = "high"
	SourceConfidenceMedium SourceConfidenceTier = "medium"
	SourceConfidenceLow    SourceConfidenceTier = "low"
)

// SourceConfidence computes a cluster's source-diversity tier and score
// from the unique lowercase source count: tiered, confidence
// 20 + 15*(unique-1) capped at 100.
func SourceConfidence(sources []string) (SourceConfidenceTier, float64) {
	unique := make(map[string]bool)
	for _, s := range sources {
		unique[strings.ToLower(strings.TrimSpace(s))] = true
	}
	n := len(unique)

	var tier SourceConfidenceTier
	switch {
	case n >= 4:
		tier = SourceConfidenceHigh
	case n >= 2:
		tier = SourceConfidenceMedium
	default:
		tier = SourceConfidenceLow
	}

	score := 20 + 15*float64(n-1)
	if score > 100 {
		score = 100
	}
	return tier, score
}
