package store

import (
	"database/sql"
	"fmt"
)

// SaveEntitySentiment upserts a batch of per-(entity,date) sentiment rollups.
func (s *Store) SaveEntitySentiment(batch []EntitySentimentPoint) error {
	if len(batch) == 0 {
		return nil
	}
	return s.WithTransaction(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO entity_sentiment (entity, entity_type, date, avg_sentiment, article_count)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(entity, date) DO UPDATE SET
				entity_type = excluded.entity_type, avg_sentiment = excluded.avg_sentiment, article_count = excluded.article_count
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, p := range batch {
			if _, err := stmt.Exec(p.Entity, string(p.EntityType), p.Date, p.AvgSentiment, p.ArticleCount); err != nil {
				return fmt.Errorf("insert entity sentiment %s/%s: %w", p.Entity, p.Date, err)
			}
		}
		return nil
	})
}

// GetEntitySentimentHistory returns the sentiment history for a single
// entity over the last `days` days, oldest first.
func (s *Store) GetEntitySentimentHistory(entity string, days int) ([]EntitySentimentPoint, error) {
	rows, err := s.conn.Query(`
		SELECT entity, entity_type, date, avg_sentiment, article_count
		FROM entity_sentiment
		WHERE entity = ? AND date(date) >= date('now', ?)
		ORDER BY date ASC
	`, entity, fmt.Sprintf("-%d days", days))
	if err != nil {
		return nil, fmt.Errorf("query entity sentiment history: %w", err)
	}
	defer rows.Close()

	var out []EntitySentimentPoint
	for rows.Next() {
		var p EntitySentimentPoint
		var entityType string
		if err := rows.Scan(&p.Entity, &entityType, &p.Date, &p.AvgSentiment, &p.ArticleCount); err != nil {
			return nil, fmt.Errorf("scan entity sentiment: %w", err)
		}
		p.EntityType = EntityType(entityType)
		out = append(out, p)
	}
	return out, rows.Err()
}
