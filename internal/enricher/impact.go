package enricher

import (
	"math"
	"strings"
	"time"
)

// Weights is the impact-score weight tuple (w_s, w_c, w_src, w_r), either
// the default or the latest optimizer output.
type Weights struct {
	Sentiment   float64
	ClusterSize float64
	SourceTier  float64
	Recency     float64
}

// DefaultWeights is the default impact-score weighting.
var DefaultWeights = Weights{Sentiment: 0.4, ClusterSize: 0.3, SourceTier: 0.2, Recency: 0.1}

// sourceTiers is the fixed source-quality tier table.
var sourceTiers = map[string]float64{
	"reuters": 1.3, "bloomberg": 1.3, "ft": 1.3, "financial times": 1.3,
	"techcrunch": 1.1, "the verge": 1.1, "verge": 1.1, "cnbc": 1.1,
}

// ImpactInputs are the raw ingredients for ImpactScore, decoupled from the
// cluster they'll eventually belong to so the enricher can compute a
// provisional single-article impact before clustering assigns cluster_size.
type ImpactInputs struct {
	NormalizedSentiment int
	ClusterSize         int
	Source              string
	PublishedAt         time.Time
	Weights             Weights
}

// ImpactScore computes the 0-100 composite impact score.
func ImpactScore(in ImpactInputs) float64 {
	w := in.Weights

	clusterSizeScore := math.Min(100, float64(in.ClusterSize)/20*100)

	tier := sourceTier(in.Source)
	sourceScore := (tier - 0.7) / 0.6 * 100

	hoursOld := time.Since(in.PublishedAt).Hours()
	if hoursOld < 0 {
		hoursOld = 0
	}
	recencyScore := math.Round(math.Exp(-0.05*hoursOld) * 100)

	sentimentScore := math.Abs(float64(in.NormalizedSentiment))

	sum := w.Sentiment*sentimentScore + w.ClusterSize*clusterSizeScore + w.SourceTier*sourceScore + w.Recency*recencyScore
	return math.Round(clampFloat(sum, 0, 100))
}

func sourceTier(source string) float64 {
	trimmed := strings.TrimSpace(source)
	if trimmed == "" {
		return 0.8 // unknown
	}
	if tier, ok := sourceTiers[strings.ToLower(trimmed)]; ok {
		return tier
	}
	return 1.0 // default, named but untiered source
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
