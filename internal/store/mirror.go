package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FeedEntry is one day's entry in the legacy-compatible JSON feed.
type FeedEntry struct {
	Date    string                 `json:"date"`
	Content map[string]interface{} `json:"content"`
}

// feedArticle is the per-category article projection embedded in the feed.
type feedArticle struct {
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Source      string  `json:"source"`
	Sentiment   int     `json:"sentiment"`
	ImpactScore float64 `json:"impactScore"`
}

// MirrorToJSONFeed writes news_feed.json under dir as a derived,
// read-optimized mirror of the store. The database remains authoritative;
// this file exists purely for a legacy-compatible external consumer.
// Capped at 365 days, sorted descending by date.
func (s *Store) MirrorToJSONFeed(dir string) error {
	briefings, err := s.ListBriefings(365)
	if err != nil {
		return fmt.Errorf("mirror: list briefings: %w", err)
	}

	entries := make([]FeedEntry, 0, len(briefings))
	for _, b := range briefings {
		clusters, err := s.GetClustersByDate(b.Date)
		if err != nil {
			return fmt.Errorf("mirror: clusters for %s: %w", b.Date, err)
		}

		byCategory := map[string][]feedArticle{}
		for _, c := range clusters {
			members, err := s.GetClusterMembers(c.ID)
			if err != nil {
				return fmt.Errorf("mirror: members for %s: %w", c.ID, err)
			}
			raws, enriched, err := s.GetEnrichedArticlesByIDs(members)
			if err != nil {
				return fmt.Errorf("mirror: articles for %s: %w", c.ID, err)
			}
			for i := range raws {
				cat := string(raws[i].Category)
				byCategory[cat] = append(byCategory[cat], feedArticle{
					Title:       raws[i].Title,
					URL:         raws[i].URL,
					Source:      raws[i].Source,
					Sentiment:   enriched[i].Sentiment.NormalizedScore,
					ImpactScore: enriched[i].ImpactScore,
				})
			}
		}

		content := map[string]interface{}{"briefing": b.ExecutiveSummary}
		for cat, articles := range byCategory {
			content[cat] = articles
		}
		entries = append(entries, FeedEntry{Date: b.Date, Content: content})
	}

	payload, err := json.MarshalIndent(map[string]interface{}{"news": entries, "visible": true}, "", "  ")
	if err != nil {
		return fmt.Errorf("mirror: marshal feed: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mirror: create dir: %w", err)
	}
	path := filepath.Join(dir, "news_feed.json")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("mirror: write feed: %w", err)
	}
	return nil
}
