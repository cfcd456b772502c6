package store

import "fmt"

// SaveDailyVolume upserts the per-(date,category) article count.
func (s *Store) SaveDailyVolume(date string, category Category, count int) error {
	_, err := s.conn.Exec(`
		INSERT INTO daily_volume (date, category, article_count)
		VALUES (?, ?, ?)
		ON CONFLICT(date, category) DO UPDATE SET article_count = excluded.article_count
	`, date, string(category), count)
	if err != nil {
		return fmt.Errorf("save daily volume: %w", err)
	}
	return nil
}

// GetVolumeHistory returns the last `days` days of volume records for
// category, oldest first.
func (s *Store) GetVolumeHistory(category Category, days int) ([]VolumeRecord, error) {
	rows, err := s.conn.Query(`
		SELECT date, category, article_count FROM daily_volume
		WHERE category = ? AND date(date) >= date('now', ?)
		ORDER BY date ASC
	`, string(category), fmt.Sprintf("-%d days", days))
	if err != nil {
		return nil, fmt.Errorf("query volume history: %w", err)
	}
	defer rows.Close()

	var out []VolumeRecord
	for rows.Next() {
		var v VolumeRecord
		var cat string
		if err := rows.Scan(&v.Date, &cat, &v.ArticleCount); err != nil {
			return nil, fmt.Errorf("scan volume record: %w", err)
		}
		v.Category = Category(cat)
		out = append(out, v)
	}
	return out, rows.Err()
}
