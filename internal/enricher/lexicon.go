package enricher

import (
	"math"
	"regexp"
	"strings"

	"github.com/aristath/sentinel/internal/store"
)

// financeLexicon is the hand-curated ~100-term weighted finance dictionary
// used when no transformer model is available. Weights run roughly -3..+3,
// heavier terms carrying more signal.
var financeLexicon = map[string]float64{
	"beats": 2, "beat": 2, "surge": 2.5, "surges": 2.5, "soar": 2.5, "soars": 2.5,
	"rally": 2, "rallies": 2, "gain": 1.5, "gains": 1.5, "profit": 2, "profits": 2,
	"growth": 1.5, "record": 1.5, "outperform": 2, "outperforms": 2, "upgrade": 2,
	"upgraded": 2, "bullish": 2.5, "optimistic": 1.5, "strong": 1, "strength": 1,
	"expansion": 1.5, "breakthrough": 2, "innovation": 1, "win": 1.5, "wins": 1.5,
	"approval": 1.5, "approved": 1.5, "recovery": 1.5, "boost": 1.5, "boosts": 1.5,
	"exceeds": 2, "exceeded": 2, "success": 1.5, "successful": 1.5, "partnership": 1,
	"acquisition": 0.5, "investment": 1,

	"miss": -2, "misses": -2, "plunge": -2.5, "plunges": -2.5, "crash": -3, "crashes": -3,
	"slump": -2, "slumps": -2, "loss": -2, "losses": -2, "layoffs": -2.5, "layoff": -2.5,
	"decline": -1.5, "declines": -1.5, "downgrade": -2, "downgraded": -2, "bearish": -2.5,
	"pessimistic": -1.5, "weak": -1, "weakness": -1, "contraction": -1.5, "warns": -1.5,
	"warning": -1.5, "warn": -1.5, "shortage": -1.5, "shortages": -1.5, "lawsuit": -2,
	"fraud": -3, "scandal": -2.5, "investigation": -1.5, "recall": -2, "recalls": -2,
	"breach": -2.5, "hack": -2.5, "hacked": -2.5, "ransomware": -2.5, "bankruptcy": -3,
	"default": -2.5, "sanctions": -2, "tariff": -1.5, "tariffs": -1.5, "conflict": -2,
	"war": -2.5, "tension": -1.5, "tensions": -1.5, "strike": -1.5, "strikes": -1.5,
	"shutdown": -2, "delay": -1, "delays": -1, "delayed": -1, "cut": -1.5, "cuts": -1.5,
	"crisis": -2.5, "collapse": -3, "plummet": -2.5, "plummets": -2.5, "resign": -1.5,
	"resigns": -1.5, "probe": -1.5, "antitrust": -1.5,
}

var tokenPattern = regexp.MustCompile(`[a-z]+`)

// lexiconScorer implements the deterministic fallback sentiment scorer.
type lexiconScorer struct {
	lexicon map[string]float64
}

func newLexiconScorer() *lexiconScorer {
	return &lexiconScorer{lexicon: financeLexicon}
}

// score applies the fallback formula: tokenize lower-cased text, sum
// matched term weights, derive a comparative average, clamp and round to
// the normalized scale, label by thresholds, and derive confidence from
// the raw weighted sum and word count.
func (l *lexiconScorer) score(text string) store.Sentiment {
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	wordCount := len(tokens)
	if wordCount == 0 {
		return store.Sentiment{Label: store.SentimentNeutral, Method: store.SentimentLexicon}
	}

	var sum float64
	for _, tok := range tokens {
		if w, ok := l.lexicon[tok]; ok {
			sum += w
		}
	}

	comparative := sum / float64(wordCount)
	normalized := clampInt(int(math.Round(comparative*20)), -100, 100)

	var label store.SentimentLabel
	switch {
	case normalized > 10:
		label = store.SentimentPositive
	case normalized < -10:
		label = store.SentimentNegative
	default:
		label = store.SentimentNeutral
	}

	confidence := math.Min(0.95, 0.1*math.Abs(sum)+0.02*float64(wordCount))

	return store.Sentiment{
		Score:           float64(normalized) / 100,
		NormalizedScore: normalized,
		Confidence:      confidence,
		Label:           label,
		Method:          store.SentimentLexicon,
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
