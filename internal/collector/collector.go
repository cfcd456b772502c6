// Package collector runs the configured provider adapters in order,
// deduplicates their output by URL, and persists the combined result.
package collector

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/aristath/sentinel/internal/providers"
	"github.com/aristath/sentinel/internal/store"
)

// ProviderCount is the per-provider observability count for one run.
type ProviderCount struct {
	Provider     string
	Fetched      int
	Deduplicated int
	Err          error
}

// Result is the outcome of one Collector.Run call.
type Result struct {
	Articles      []store.RawArticle
	ProviderCounts []ProviderCount
}

// Collector iterates providers in a fixed configured order, skipping any
// that report unavailable, and deduplicates across providers by URL within
// a single run: the first provider to report a URL wins.
type Collector struct {
	db        *store.Store
	providers []providers.Provider
	log       zerolog.Logger
}

// New builds a Collector over an ordered provider list. Order is
// significant: it determines both fetch order and dedup precedence.
func New(db *store.Store, ordered []providers.Provider, log zerolog.Logger) *Collector {
	return &Collector{db: db, providers: ordered, log: log.With().Str("component", "collector").Logger()}
}

// Run fetches every category from every available provider in order,
// deduplicates by URL (first writer wins), persists the combined set, and
// returns per-provider counts for observability.
func (c *Collector) Run(ctx context.Context, categories []store.Category) (Result, error) {
	seen := make(map[string]bool)
	var combined []store.RawArticle
	counts := make([]ProviderCount, 0, len(c.providers))

	for _, p := range c.providers {
		if !p.IsAvailable() {
			c.log.Warn().Str("provider", p.Name()).Msg("provider unavailable, skipping")
			counts = append(counts, ProviderCount{Provider: p.Name()})
			continue
		}

		pc := ProviderCount{Provider: p.Name()}
		for _, category := range categories {
			articles, err := p.FetchArticles(ctx, category)
			if err != nil {
				c.log.Warn().Err(err).Str("provider", p.Name()).Str("category", string(category)).Msg("fetch failed")
				pc.Err = err
				continue
			}
			pc.Fetched += len(articles)
			for _, a := range articles {
				if seen[a.URL] {
					pc.Deduplicated++
					continue
				}
				seen[a.URL] = true
				combined = append(combined, a)
			}

			select {
			case <-ctx.Done():
				counts = append(counts, pc)
				return Result{Articles: combined, ProviderCounts: counts}, ctx.Err()
			default:
			}
		}
		counts = append(counts, pc)
	}

	if len(combined) > 0 {
		if err := c.db.SaveRawArticles(combined); err != nil {
			return Result{Articles: combined, ProviderCounts: counts}, err
		}
	}

	c.log.Info().Int("articles", len(combined)).Int("providers", len(c.providers)).Msg("collection run complete")
	return Result{Articles: combined, ProviderCounts: counts}, nil
}
