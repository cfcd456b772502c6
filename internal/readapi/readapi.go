// Package readapi provides thin, dependency-free accessors over the store
// for the read-only HTTP surface: no business logic, just parameter
// clamping, response-shape assembly, and store calls.
package readapi

import (
	"encoding/json"
	"fmt"

	"github.com/aristath/sentinel/internal/store"
)

const maxTerminalDays = 30
const maxSentimentDays = 90
const maxHistoryDays = 30

// ReadAPI is the read-only accessor layer backing the HTTP routes.
type ReadAPI struct {
	db *store.Store
}

func New(db *store.Store) *ReadAPI {
	return &ReadAPI{db: db}
}

// NewsArticleSummary is the trimmed per-article projection embedded in a
// news day's category arrays.
type NewsArticleSummary struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	PublishedAt string `json:"publishedAt"`
	Sentiment   string `json:"sentiment"`
}

// NewsContent is one day's briefing text plus its articles grouped by
// category. It marshals flat: {"briefing": "...", "<category>": [...], ...}
// rather than nesting the categories under their own key.
type NewsContent struct {
	Briefing   string
	Categories map[store.Category][]NewsArticleSummary
}

func (c NewsContent) MarshalJSON() ([]byte, error) {
	flat := make(map[string]interface{}, len(c.Categories)+1)
	flat["briefing"] = c.Briefing
	for category, articles := range c.Categories {
		flat[string(category)] = articles
	}
	return json.Marshal(flat)
}

// NewsDay is one date's envelope entry.
type NewsDay struct {
	Date    string      `json:"date"`
	Content NewsContent `json:"content"`
}

// News returns every briefing, newest first, with each day's articles
// grouped by category, plus how many days are included (GET /news).
func (a *ReadAPI) News() ([]NewsDay, int, error) {
	briefings, err := a.db.ListBriefings(365)
	if err != nil {
		return nil, 0, fmt.Errorf("list briefings: %w", err)
	}

	out := make([]NewsDay, 0, len(briefings))
	for _, b := range briefings {
		raws, enriched, err := a.db.GetEnrichedArticlesForDate(b.Date)
		if err != nil {
			return nil, 0, fmt.Errorf("load articles for %s: %w", b.Date, err)
		}
		out = append(out, NewsDay{
			Date: b.Date,
			Content: NewsContent{
				Briefing:   b.ExecutiveSummary,
				Categories: groupArticlesByCategory(raws, enriched),
			},
		})
	}
	return out, len(out), nil
}

func groupArticlesByCategory(raws []store.RawArticle, enriched []store.EnrichedArticle) map[store.Category][]NewsArticleSummary {
	sentimentByID := make(map[string]store.SentimentLabel, len(enriched))
	for _, e := range enriched {
		sentimentByID[e.ID] = e.Sentiment.Label
	}

	out := make(map[store.Category][]NewsArticleSummary)
	for _, r := range raws {
		out[r.Category] = append(out[r.Category], NewsArticleSummary{
			Title:       r.Title,
			URL:         r.URL,
			Source:      r.Source,
			PublishedAt: r.PublishedAt.Format("2006-01-02T15:04:05Z07:00"),
			Sentiment:   string(sentimentByID[r.ID]),
		})
	}
	return out
}

// NewsForDate returns one date's briefing plus its clusters, or nil if no
// briefing exists yet (GET /news/{date}).
func (a *ReadAPI) NewsForDate(date string) (*store.DailyBriefing, []store.Cluster, error) {
	briefing, err := a.db.GetBriefing(date)
	if err != nil {
		return nil, nil, fmt.Errorf("get briefing: %w", err)
	}
	if briefing == nil {
		return nil, nil, nil
	}
	clusters, err := a.db.GetClustersByDate(date)
	if err != nil {
		return nil, nil, fmt.Errorf("get clusters: %w", err)
	}
	return briefing, clusters, nil
}

// MarketTerminal returns the last `days` days of GPR history, clamped to
// maxTerminalDays (GET /market-terminal).
func (a *ReadAPI) MarketTerminal(days int) ([]store.GPRDatapoint, error) {
	return a.db.GetGPRHistory(clamp(days, maxTerminalDays))
}

// MarketTerminalLatest returns the most recent GPR datapoint, or nil if the
// pipeline has never run (GET /market-terminal/latest).
func (a *ReadAPI) MarketTerminalLatest() (*store.GPRDatapoint, error) {
	history, err := a.db.GetGPRHistory(1)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, nil
	}
	return &history[len(history)-1], nil
}

// EntitySentiment returns an entity's sentiment history over the last
// `days` days, clamped to maxSentimentDays (GET /market-terminal/sentiment).
func (a *ReadAPI) EntitySentiment(entity string, days int) ([]store.EntitySentimentPoint, error) {
	return a.db.GetEntitySentimentHistory(entity, clampMax(days, maxSentimentDays))
}

// MarketHistory returns a symbol's candle history over the last `days`
// days, clamped to maxHistoryDays (GET /market-terminal/history).
func (a *ReadAPI) MarketHistory(symbol string, days int) ([]store.MarketDatapoint, error) {
	return a.db.GetMarketData(symbol, clamp(days, maxHistoryDays))
}

// StageHealth returns the health sidecar rows for one run date.
func (a *ReadAPI) StageHealth(date string) ([]store.StageHealthRecord, error) {
	return a.db.GetStageHealthForDate(date)
}

func clamp(days, max int) int {
	if days <= 0 {
		return max
	}
	if days > max {
		return max
	}
	return days
}

func clampMax(days, max int) int {
	return clamp(days, max)
}
