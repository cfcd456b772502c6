package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// SaveClusters upserts a batch of clusters and stamps each member enriched
// article's cluster_id, all within one transaction.
func (s *Store) SaveClusters(batch []Cluster) error {
	if len(batch) == 0 {
		return nil
	}
	return s.WithTransaction(func(tx *sql.Tx) error {
		clusterStmt, err := tx.Prepare(`
			INSERT INTO clusters (id, date, topic, keywords, article_count, aggregate_sentiment, aggregate_impact, categories, earliest, latest)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				date = excluded.date, topic = excluded.topic, keywords = excluded.keywords,
				article_count = excluded.article_count, aggregate_sentiment = excluded.aggregate_sentiment,
				aggregate_impact = excluded.aggregate_impact, categories = excluded.categories,
				earliest = excluded.earliest, latest = excluded.latest
		`)
		if err != nil {
			return err
		}
		defer clusterStmt.Close()

		memberStmt, err := tx.Prepare(`UPDATE enriched_articles SET cluster_id = ? WHERE id = ?`)
		if err != nil {
			return err
		}
		defer memberStmt.Close()

		for _, c := range batch {
			keywords, _ := json.Marshal(c.Keywords)
			cats, _ := json.Marshal(c.Categories)
			if _, err := clusterStmt.Exec(c.ID, c.Date, c.Topic, string(keywords), c.ArticleCount,
				c.AggregateSentiment, c.AggregateImpact, string(cats),
				c.DateRange.Earliest.Format("2006-01-02"), c.DateRange.Latest.Format("2006-01-02")); err != nil {
				return fmt.Errorf("insert cluster %s: %w", c.ID, err)
			}
			for _, memberID := range c.MemberIDs {
				if _, err := memberStmt.Exec(c.ID, memberID); err != nil {
					return fmt.Errorf("stamp cluster id on %s: %w", memberID, err)
				}
			}
		}
		return nil
	})
}

// GetClustersByDate returns clusters whose date key (latest member's
// calendar date) matches date, ordered by aggregate_impact descending.
func (s *Store) GetClustersByDate(date string) ([]Cluster, error) {
	rows, err := s.conn.Query(`
		SELECT id, date, topic, keywords, article_count, aggregate_sentiment, aggregate_impact, categories, earliest, latest
		FROM clusters WHERE date = ? ORDER BY aggregate_impact DESC
	`, date)
	if err != nil {
		return nil, fmt.Errorf("query clusters by date: %w", err)
	}
	defer rows.Close()

	var out []Cluster
	for rows.Next() {
		c, err := scanCluster(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetClusterMembers loads the enriched-article ids belonging to a cluster,
// materializing the member list on demand (the recursive cluster<->article
// relationship is broken by storing cluster_id on the enriched article).
func (s *Store) GetClusterMembers(clusterID string) ([]string, error) {
	rows, err := s.conn.Query(`SELECT id FROM enriched_articles WHERE cluster_id = ?`, clusterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetClustersInRange returns all clusters with date in [from, to] inclusive,
// used by the narrative engine to scan the last N days.
func (s *Store) GetClustersInRange(from, to string) ([]Cluster, error) {
	rows, err := s.conn.Query(`
		SELECT id, date, topic, keywords, article_count, aggregate_sentiment, aggregate_impact, categories, earliest, latest
		FROM clusters WHERE date >= ? AND date <= ? ORDER BY date ASC
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query clusters in range: %w", err)
	}
	defer rows.Close()

	var out []Cluster
	for rows.Next() {
		c, err := scanCluster(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetDailySentiment returns the last `days` days' article-count-weighted
// mean cluster sentiment, oldest first, for the validation subsystem's
// market-correlation alignment.
func (s *Store) GetDailySentiment(days int) ([]DailySentimentPoint, error) {
	rows, err := s.conn.Query(`
		SELECT date, SUM(aggregate_sentiment * article_count) / SUM(article_count), SUM(article_count)
		FROM clusters
		WHERE article_count > 0
		GROUP BY date
		ORDER BY date DESC
		LIMIT ?
	`, days)
	if err != nil {
		return nil, fmt.Errorf("query daily sentiment: %w", err)
	}
	defer rows.Close()

	var out []DailySentimentPoint
	for rows.Next() {
		var p DailySentimentPoint
		if err := rows.Scan(&p.Date, &p.MeanSentiment, &p.ArticleCount); err != nil {
			return nil, fmt.Errorf("scan daily sentiment: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func scanCluster(rows scanRows) (Cluster, error) {
	var c Cluster
	var keywords, cats, earliest, latest string
	if err := rows.Scan(&c.ID, &c.Date, &c.Topic, &keywords, &c.ArticleCount, &c.AggregateSentiment,
		&c.AggregateImpact, &cats, &earliest, &latest); err != nil {
		return c, fmt.Errorf("scan cluster: %w", err)
	}
	_ = json.Unmarshal([]byte(keywords), &c.Keywords)
	var catStrs []string
	_ = json.Unmarshal([]byte(cats), &catStrs)
	for _, cs := range catStrs {
		c.Categories = append(c.Categories, Category(cs))
	}
	if t, err := parseDate(earliest); err == nil {
		c.DateRange.Earliest = t
	}
	if t, err := parseDate(latest); err == nil {
		c.DateRange.Latest = t
	}
	return c, nil
}
