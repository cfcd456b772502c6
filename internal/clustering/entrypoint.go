package clustering

import "github.com/aristath/sentinel/internal/store"

// RunEnriched is the cross-package entry point clustering exposes to the
// orchestrator: it joins raw and enriched article projections into the
// package-internal articleView and delegates to Run. Kept separate from
// Run/articleView so the in-package tests built against articleView
// directly are unaffected.
func (c *Clustering) RunEnriched(raw []store.RawArticle, enriched []store.EnrichedArticle) ([]store.Cluster, error) {
	rawByID := make(map[string]store.RawArticle, len(raw))
	for _, r := range raw {
		rawByID[r.ID] = r
	}

	views := make([]articleView, 0, len(enriched))
	for _, e := range enriched {
		r, ok := rawByID[e.ID]
		if !ok {
			continue
		}
		views = append(views, articleView{
			ID:          e.ID,
			Text:        r.Title + ". " + r.Description,
			Source:      r.Source,
			Category:    r.Category,
			PublishedAt: r.PublishedAt,
			Sentiment:   e.Sentiment.NormalizedScore,
			Impact:      e.ImpactScore,
		})
	}

	return c.Run(views)
}
