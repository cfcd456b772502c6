package store

import (
	"encoding/json"
	"fmt"
)

// SaveGPRPoint upserts one day's geopolitical risk index row.
func (s *Store) SaveGPRPoint(p GPRDatapoint) error {
	counts, _ := json.Marshal(p.KeywordCounts)
	top, _ := json.Marshal(p.TopKeywords)
	_, err := s.conn.Exec(`
		INSERT INTO gpr_points (date, score, keyword_counts, top_keywords, article_count)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			score = excluded.score, keyword_counts = excluded.keyword_counts,
			top_keywords = excluded.top_keywords, article_count = excluded.article_count
	`, p.Date, p.Score, string(counts), string(top), p.ArticleCount)
	if err != nil {
		return fmt.Errorf("save gpr point: %w", err)
	}
	return nil
}

// GetGPRHistory returns the most recent `limit` GPR datapoints, oldest first.
func (s *Store) GetGPRHistory(limit int) ([]GPRDatapoint, error) {
	rows, err := s.conn.Query(`
		SELECT date, score, keyword_counts, top_keywords, article_count
		FROM gpr_points ORDER BY date DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query gpr history: %w", err)
	}
	defer rows.Close()

	var out []GPRDatapoint
	for rows.Next() {
		var p GPRDatapoint
		var counts, top string
		if err := rows.Scan(&p.Date, &p.Score, &counts, &top, &p.ArticleCount); err != nil {
			return nil, fmt.Errorf("scan gpr point: %w", err)
		}
		_ = json.Unmarshal([]byte(counts), &p.KeywordCounts)
		_ = json.Unmarshal([]byte(top), &p.TopKeywords)
		out = append(out, p)
	}
	// reverse to oldest-first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, rows.Err()
}
