// Package metrics computes the GPR index, the entity sentiment tracker,
// and the per-category volume anomaly detector.
package metrics

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aristath/sentinel/internal/store"
)

// gprBucketTerms is the fixed weighted keyword dictionary over the six GPR
// buckets. Only listed terms are counted; most carry weight 1.0 and
// selected high-signal terms carry 1.5-3.0.
var gprBucketTerms = map[string]float64{
	"war": 3.0, "invasion": 3.0, "nuclear": 3.0, "missile": 2.5, "airstrike": 2.5,
	"sanctions": 2.0, "embargo": 2.0, "coup": 2.5, "terrorism": 2.5, "conflict": 2.0,
	"tariff": 1.5, "tariffs": 1.5, "trade war": 2.0, "blockade": 2.5,
	"unrest": 1.5, "protest": 1.0, "uprising": 2.0, "regime change": 2.0,
	"diplomatic crisis": 2.0, "summit": 1.0, "treaty": 1.0,
	"cyberattack": 1.5, "espionage": 2.0, "militarization": 2.0, "annexation": 3.0,
}

// GPRResult is one day's computed GPR figures.
type GPRResult struct {
	Date          string
	RawScore      float64
	Score         float64
	KeywordCounts map[string]int
	TopKeywords   []string
	ArticleCount  int
}

// ComputeGPR scores today's articles against the GPR keyword dictionary:
// weighted_sum accumulates matches*weight per article;
// raw = (weighted_sum/articles)*100; normalized = round(min(100, raw*2.5)).
func ComputeGPR(date string, texts []string) GPRResult {
	counts := make(map[string]int)
	var weightedSum float64

	for _, text := range texts {
		lower := strings.ToLower(text)
		for term, weight := range gprBucketTerms {
			matches := strings.Count(lower, term)
			if matches == 0 {
				continue
			}
			counts[term] += matches
			weightedSum += float64(matches) * weight
		}
	}

	n := len(texts)
	raw := 0.0
	if n > 0 {
		raw = (weightedSum / float64(n)) * 100
	}
	normalized := math.Round(math.Min(100, raw*2.5))

	return GPRResult{
		Date:          date,
		RawScore:      raw,
		Score:         normalized,
		KeywordCounts: counts,
		TopKeywords:   topKeywords(counts, 5),
		ArticleCount:  n,
	}
}

func topKeywords(counts map[string]int, n int) []string {
	type kv struct {
		k string
		v int
	}
	pairs := make([]kv, 0, len(counts))
	for k, v := range counts {
		pairs = append(pairs, kv{k, v})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].v != pairs[j].v {
			return pairs[i].v > pairs[j].v
		}
		return pairs[i].k < pairs[j].k
	})
	if len(pairs) > n {
		pairs = pairs[:n]
	}
	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = p.k
	}
	return out
}

// Trend is the 14-day GPR trend classification.
type Trend string

const (
	TrendRising  Trend = "rising"
	TrendFalling Trend = "falling"
	TrendStable  Trend = "stable"
)

// ComputeTrend compares the last-7-day mean against the prior-7-day mean
// from a 14-day history ordered oldest first.
func ComputeTrend(last14Days []float64) Trend {
	if len(last14Days) < 14 {
		return TrendStable
	}
	prior7 := last14Days[:7]
	last7 := last14Days[7:]
	priorMean := mean(prior7)
	lastMean := mean(last7)
	if priorMean == 0 {
		return TrendStable
	}
	deltaPct := (lastMean - priorMean) / priorMean * 100
	switch {
	case deltaPct > 10:
		return TrendRising
	case deltaPct < -10:
		return TrendFalling
	default:
		return TrendStable
	}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// GPRTracker persists GPR datapoints and reports the 14-day trend.
type GPRTracker struct {
	db  *store.Store
	log zerolog.Logger
}

func NewGPRTracker(db *store.Store, log zerolog.Logger) *GPRTracker {
	return &GPRTracker{db: db, log: log.With().Str("component", "gpr").Logger()}
}

// Run computes and persists today's GPR datapoint.
func (t *GPRTracker) Run(date string, texts []string) (store.GPRDatapoint, error) {
	result := ComputeGPR(date, texts)
	point := store.GPRDatapoint{
		Date:          date,
		Score:         result.Score,
		KeywordCounts: result.KeywordCounts,
		TopKeywords:   result.TopKeywords,
		ArticleCount:  result.ArticleCount,
	}
	if err := t.db.SaveGPRPoint(point); err != nil {
		return store.GPRDatapoint{}, fmt.Errorf("save gpr point: %w", err)
	}
	t.log.Info().Str("date", date).Float64("score", result.Score).Msg("gpr computed")
	return point, nil
}

// Trend returns the 14-day trend classification using persisted history.
func (t *GPRTracker) Trend() (Trend, error) {
	history, err := t.db.GetGPRHistory(14)
	if err != nil {
		return TrendStable, fmt.Errorf("load gpr history: %w", err)
	}
	scores := make([]float64, len(history))
	for i, h := range history {
		scores[i] = h.Score
	}
	return ComputeTrend(scores), nil
}
