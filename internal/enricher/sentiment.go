// Package enricher computes the per-article sentiment, geopolitical tags,
// named entities, and impact score that turn a raw article into an
// enriched one.
package enricher

import (
	"math"
	"strings"
	"sync"

	"github.com/aristath/sentinel/internal/cache"
	"github.com/aristath/sentinel/internal/store"
)

// SentimentModel is the interface seam for a preferred transformer-backed
// classifier. The only real implementation shipped is the lexicon scorer;
// the seam is kept so a real model can be dropped in without touching the
// rest of the enricher.
type SentimentModel interface {
	// Classify returns a raw label ("positive", "negative", "neutral") and
	// a confidence in [0,1]. An error means the model is unusable this run.
	Classify(text string) (label string, confidence float64, err error)
}

// LazyModel loads its underlying SentimentModel on first use and shares a
// single instance across calls. Once a load attempt fails, the enricher
// sticks with the lexicon fallback for the rest of the process lifetime.
type LazyModel struct {
	mu      sync.Mutex
	loader  func() (SentimentModel, error)
	model   SentimentModel
	failed  bool
	loaded  bool
}

// NewLazyModel wraps a loader function. Passing a nil loader means no
// transformer is configured and the lexicon scorer is used immediately.
func NewLazyModel(loader func() (SentimentModel, error)) *LazyModel {
	return &LazyModel{loader: loader}
}

func (m *LazyModel) resolve() (SentimentModel, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failed || m.loader == nil {
		return nil, false
	}
	if m.loaded {
		return m.model, m.model != nil
	}
	m.loaded = true
	model, err := m.loader()
	if err != nil {
		m.failed = true
		return nil, false
	}
	m.model = model
	return model, true
}

// Scorer computes sentiment for article text, preferring the transformer
// model and falling back to the lexicon scorer, with a normalized-text
// cache in front of both paths.
type Scorer struct {
	model      *LazyModel
	lexicon    *lexiconScorer
	sentiments *cache.SentimentCache
}

// NewScorer builds a Scorer. sc may be nil to disable caching (tests only).
func NewScorer(model *LazyModel, sc *cache.SentimentCache) *Scorer {
	return &Scorer{model: model, lexicon: newLexiconScorer(), sentiments: sc}
}

// Score computes the Sentiment projection for a block of text, consulting
// the cache by normalized text first.
func (s *Scorer) Score(text string) store.Sentiment {
	if s.sentiments != nil {
		if cached, ok := s.sentiments.Get(text); ok {
			return cached
		}
	}

	result := s.scoreUncached(text)

	if s.sentiments != nil {
		s.sentiments.Put(text, result)
	}
	return result
}

func (s *Scorer) scoreUncached(text string) store.Sentiment {
	if model, ok := s.model.resolve(); ok {
		if label, confidence, err := model.Classify(text); err == nil {
			return sentimentFromModel(label, confidence)
		}
	}
	return s.lexicon.score(text)
}

// sentimentFromModel maps a transformer's raw label/confidence pair to the
// normalized sentiment scale.
func sentimentFromModel(label string, confidence float64) store.Sentiment {
	var normalized int
	var lbl store.SentimentLabel
	switch strings.ToLower(label) {
	case "positive":
		normalized = int(math.Round(confidence * 50))
		lbl = store.SentimentPositive
	case "negative":
		normalized = -int(math.Round(confidence * 50))
		lbl = store.SentimentNegative
	default:
		normalized = 0
		lbl = store.SentimentNeutral
	}
	return store.Sentiment{
		Score:           float64(normalized) / 100,
		NormalizedScore: normalized,
		Confidence:      confidence,
		Label:           lbl,
		Method:          store.SentimentTransformer,
	}
}
