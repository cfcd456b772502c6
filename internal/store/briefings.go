package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SaveBriefing upserts the one-per-date daily briefing.
func (s *Store) SaveBriefing(b DailyBriefing) error {
	topClusters, _ := json.Marshal(b.TopClusters)
	_, err := s.conn.Exec(`
		INSERT INTO daily_briefings (date, executive_summary, cache_hash, source, gpr_index, market_sentiment, generated_at, top_clusters)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			executive_summary = excluded.executive_summary, cache_hash = excluded.cache_hash,
			source = excluded.source, gpr_index = excluded.gpr_index, market_sentiment = excluded.market_sentiment,
			generated_at = excluded.generated_at, top_clusters = excluded.top_clusters
	`, b.Date, b.ExecutiveSummary, b.CacheHash, string(b.Source), b.GPRIndex, b.MarketSentiment,
		b.GeneratedAt.UTC().Format(time.RFC3339), string(topClusters))
	if err != nil {
		return fmt.Errorf("save briefing: %w", err)
	}
	return nil
}

// GetBriefing returns the briefing for date, or (nil, nil) if absent.
func (s *Store) GetBriefing(date string) (*DailyBriefing, error) {
	row := s.conn.QueryRow(`
		SELECT date, executive_summary, cache_hash, source, gpr_index, market_sentiment, generated_at, top_clusters
		FROM daily_briefings WHERE date = ?
	`, date)

	var b DailyBriefing
	var source, generatedAt, topClusters string
	if err := row.Scan(&b.Date, &b.ExecutiveSummary, &b.CacheHash, &source, &b.GPRIndex, &b.MarketSentiment, &generatedAt, &topClusters); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get briefing: %w", err)
	}
	b.Source = BriefingSource(source)
	if t, err := time.Parse(time.RFC3339, generatedAt); err == nil {
		b.GeneratedAt = t
	}
	_ = json.Unmarshal([]byte(topClusters), &b.TopClusters)
	return &b, nil
}

// ListBriefings returns the most recent `limit` briefings, newest first,
// capped at 365 days for the legacy JSON feed mirror.
func (s *Store) ListBriefings(limit int) ([]DailyBriefing, error) {
	if limit <= 0 || limit > 365 {
		limit = 365
	}
	rows, err := s.conn.Query(`
		SELECT date, executive_summary, cache_hash, source, gpr_index, market_sentiment, generated_at, top_clusters
		FROM daily_briefings ORDER BY date DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list briefings: %w", err)
	}
	defer rows.Close()

	var out []DailyBriefing
	for rows.Next() {
		var b DailyBriefing
		var source, generatedAt, topClusters string
		if err := rows.Scan(&b.Date, &b.ExecutiveSummary, &b.CacheHash, &source, &b.GPRIndex, &b.MarketSentiment, &generatedAt, &topClusters); err != nil {
			return nil, fmt.Errorf("scan briefing: %w", err)
		}
		b.Source = BriefingSource(source)
		if t, err := time.Parse(time.RFC3339, generatedAt); err == nil {
			b.GeneratedAt = t
		}
		_ = json.Unmarshal([]byte(topClusters), &b.TopClusters)
		out = append(out, b)
	}
	return out, rows.Err()
}
