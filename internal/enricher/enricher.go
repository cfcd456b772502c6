package enricher

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/sentinel/internal/store"
)

const weightRefreshInterval = time.Hour
const optimizedWeightsMaxAge = 7 * 24 * time.Hour

// WeightPolicy resolves the impact-score weight tuple, consulting the
// store's optimizer output at most once an hour.
type WeightPolicy struct {
	db *store.Store

	mu          sync.Mutex
	lastChecked time.Time
	current     Weights
}

// NewWeightPolicy starts a policy pinned to the default weights until its
// first resolution.
func NewWeightPolicy(db *store.Store) *WeightPolicy {
	return &WeightPolicy{db: db, current: DefaultWeights}
}

// Resolve returns the weights to use right now, refreshing from the store
// if more than an hour has passed since the last check.
func (p *WeightPolicy) Resolve() Weights {
	p.mu.Lock()
	defer p.mu.Unlock()

	if time.Since(p.lastChecked) < weightRefreshInterval && !p.lastChecked.IsZero() {
		return p.current
	}
	p.lastChecked = time.Now()

	optimized, err := p.db.GetCurrentWeights()
	if err != nil || optimized == nil {
		p.current = DefaultWeights
		return p.current
	}
	if time.Since(optimized.ComputedAt) > optimizedWeightsMaxAge {
		p.current = DefaultWeights
		return p.current
	}

	baseline, err := p.db.GetLatestBacktest()
	defaultR := 0.0
	if err == nil && baseline != nil {
		defaultR = baseline.PearsonR
	}
	if math.Abs(optimized.PearsonR) > math.Abs(defaultR) {
		p.current = Weights{
			Sentiment:   optimized.WSentiment,
			ClusterSize: optimized.WClusterSize,
			SourceTier:  optimized.WSourceTier,
			Recency:     optimized.WRecency,
		}
		return p.current
	}
	p.current = DefaultWeights
	return p.current
}

// Enricher produces the enriched projection for a batch of raw articles.
type Enricher struct {
	db      *store.Store
	scorer  *Scorer
	weights *WeightPolicy
	log     zerolog.Logger
}

// New builds an Enricher over the given store, sentiment scorer, and
// weight policy.
func New(db *store.Store, scorer *Scorer, weights *WeightPolicy, log zerolog.Logger) *Enricher {
	return &Enricher{db: db, scorer: scorer, weights: weights, log: log.With().Str("component", "enricher").Logger()}
}

// Run enriches every unenriched article currently in the store, persisting
// the whole batch in one transaction.
func (e *Enricher) Run(limit int) (int, error) {
	raws, err := e.db.GetUnenrichedArticles(limit)
	if err != nil {
		return 0, fmt.Errorf("load unenriched articles: %w", err)
	}
	if len(raws) == 0 {
		return 0, nil
	}

	weights := e.weights.Resolve()
	batch := make([]store.EnrichedArticle, 0, len(raws))
	for _, raw := range raws {
		batch = append(batch, e.enrichOne(raw, weights))
	}

	if err := e.db.SaveEnrichedArticles(batch); err != nil {
		return 0, fmt.Errorf("save enriched batch: %w", err)
	}

	e.log.Info().Int("articles", len(batch)).Msg("enrichment run complete")
	return len(batch), nil
}

func (e *Enricher) enrichOne(raw store.RawArticle, weights Weights) store.EnrichedArticle {
	text := raw.Title + " " + raw.Description
	sentiment := e.scorer.Score(text)
	entities := ExtractEntities(text)

	impact := ImpactScore(ImpactInputs{
		NormalizedSentiment: sentiment.NormalizedScore,
		ClusterSize:         1, // provisional; clustering recomputes aggregate_impact per cluster
		Source:              raw.Source,
		PublishedAt:         raw.PublishedAt,
		Weights:             weights,
	})

	return store.EnrichedArticle{
		ID:          raw.ID,
		Sentiment:   sentiment,
		ImpactScore: impact,
		GeoTags:     GeoTags(text),
		Topics:      entities.Topics,
		Entities:    entities,
	}
}
