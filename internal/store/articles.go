package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SaveRawArticles upserts a batch of raw articles by URL in one transaction.
// On a URL conflict, title/description/content are updated to heal earlier
// corrupted fetches; the id, published_at, source, etc. of the first writer
// are preserved.
func (s *Store) SaveRawArticles(batch []RawArticle) error {
	if len(batch) == 0 {
		return nil
	}
	return s.WithTransaction(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO raw_articles (id, title, description, content, url, source, source_id, published_at, category, ticker, provider, image_url)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(url) DO UPDATE SET
				title = excluded.title,
				description = excluded.description,
				content = excluded.content
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, a := range batch {
			if _, err := stmt.Exec(a.ID, a.Title, a.Description, a.Content, a.URL, a.Source, a.SourceID,
				a.PublishedAt.UTC().Format(time.RFC3339), string(a.Category), a.Ticker, a.Provider, a.ImageURL); err != nil {
				return fmt.Errorf("insert raw article %s: %w", a.URL, err)
			}
		}
		return nil
	})
}

// GetUnenrichedArticles returns raw rows with no matching enriched row,
// newest first, bounded by limit. A limit of zero or less returns every such
// row.
func (s *Store) GetUnenrichedArticles(limit int) ([]RawArticle, error) {
	if limit <= 0 {
		limit = -1 // SQLite treats a negative LIMIT as unbounded
	}
	rows, err := s.conn.Query(`
		SELECT r.id, r.title, r.description, r.content, r.url, r.source, r.source_id, r.published_at, r.category, r.ticker, r.provider, r.image_url
		FROM raw_articles r
		LEFT JOIN enriched_articles e ON e.id = r.id
		WHERE e.id IS NULL
		ORDER BY r.published_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query unenriched articles: %w", err)
	}
	defer rows.Close()

	var out []RawArticle
	for rows.Next() {
		var a RawArticle
		var published string
		var category string
		if err := rows.Scan(&a.ID, &a.Title, &a.Description, &a.Content, &a.URL, &a.Source, &a.SourceID,
			&published, &category, &a.Ticker, &a.Provider, &a.ImageURL); err != nil {
			return nil, fmt.Errorf("scan raw article: %w", err)
		}
		a.Category = Category(category)
		if t, err := time.Parse(time.RFC3339, published); err == nil {
			a.PublishedAt = t
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SaveEnrichedArticles upserts a batch of enriched articles by id in one
// transaction.
func (s *Store) SaveEnrichedArticles(batch []EnrichedArticle) error {
	if len(batch) == 0 {
		return nil
	}
	return s.WithTransaction(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO enriched_articles (
				id, sentiment_score, sentiment_normalized, sentiment_confidence, sentiment_label, sentiment_method,
				impact_score, geo_tags, topics, entities_people, entities_organizations, entities_places, entities_topics, cluster_id
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				sentiment_score = excluded.sentiment_score,
				sentiment_normalized = excluded.sentiment_normalized,
				sentiment_confidence = excluded.sentiment_confidence,
				sentiment_label = excluded.sentiment_label,
				sentiment_method = excluded.sentiment_method,
				impact_score = excluded.impact_score,
				geo_tags = excluded.geo_tags,
				topics = excluded.topics,
				entities_people = excluded.entities_people,
				entities_organizations = excluded.entities_organizations,
				entities_places = excluded.entities_places,
				entities_topics = excluded.entities_topics,
				cluster_id = excluded.cluster_id
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, e := range batch {
			geoTags, _ := json.Marshal(e.GeoTags)
			topics, _ := json.Marshal(e.Topics)
			people, _ := json.Marshal(e.Entities.People)
			orgs, _ := json.Marshal(e.Entities.Organizations)
			places, _ := json.Marshal(e.Entities.Places)
			entTopics, _ := json.Marshal(e.Entities.Topics)

			if _, err := stmt.Exec(e.ID, e.Sentiment.Score, e.Sentiment.NormalizedScore, e.Sentiment.Confidence,
				string(e.Sentiment.Label), string(e.Sentiment.Method), e.ImpactScore,
				string(geoTags), string(topics), string(people), string(orgs), string(places), string(entTopics), e.ClusterID); err != nil {
				return fmt.Errorf("insert enriched article %s: %w", e.ID, err)
			}
		}
		return nil
	})
}

// GetEnrichedArticle loads a single enriched article with its raw fields.
func (s *Store) GetEnrichedArticle(id string) (*RawArticle, *EnrichedArticle, error) {
	rows, err := s.conn.Query(`
		SELECT r.id, r.title, r.description, r.content, r.url, r.source, r.source_id, r.published_at, r.category, r.ticker, r.provider, r.image_url,
			e.sentiment_score, e.sentiment_normalized, e.sentiment_confidence, e.sentiment_label, e.sentiment_method,
			e.impact_score, e.geo_tags, e.topics, e.entities_people, e.entities_organizations, e.entities_places, e.entities_topics, e.cluster_id
		FROM raw_articles r JOIN enriched_articles e ON e.id = r.id
		WHERE r.id = ?
	`, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, nil, sql.ErrNoRows
	}
	return scanJoinedArticle(rows)
}

// GetEnrichedArticlesByIDs loads the raw+enriched projection for a set of ids.
func (s *Store) GetEnrichedArticlesByIDs(ids []string) ([]RawArticle, []EnrichedArticle, error) {
	if len(ids) == 0 {
		return nil, nil, nil
	}
	placeholders := ""
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		args[i] = id
	}
	query := fmt.Sprintf(`
		SELECT r.id, r.title, r.description, r.content, r.url, r.source, r.source_id, r.published_at, r.category, r.ticker, r.provider, r.image_url,
			e.sentiment_score, e.sentiment_normalized, e.sentiment_confidence, e.sentiment_label, e.sentiment_method,
			e.impact_score, e.geo_tags, e.topics, e.entities_people, e.entities_organizations, e.entities_places, e.entities_topics, e.cluster_id
		FROM raw_articles r JOIN enriched_articles e ON e.id = r.id
		WHERE r.id IN (%s)
	`, placeholders)
	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var raws []RawArticle
	var enr []EnrichedArticle
	for rows.Next() {
		ra, ea, err := scanJoinedArticle(rows)
		if err != nil {
			return nil, nil, err
		}
		raws = append(raws, *ra)
		enr = append(enr, *ea)
	}
	return raws, enr, rows.Err()
}

// scanRows is the minimal interface needed to scan a single joined-article row.
type scanRows interface {
	Scan(dest ...interface{}) error
}

func scanJoinedArticle(rows scanRows) (*RawArticle, *EnrichedArticle, error) {
	var ra RawArticle
	var ea EnrichedArticle
	var published, category, label, method string
	var geoTags, topics, people, orgs, places, entTopics string

	if err := rows.Scan(&ra.ID, &ra.Title, &ra.Description, &ra.Content, &ra.URL, &ra.Source, &ra.SourceID,
		&published, &category, &ra.Ticker, &ra.Provider, &ra.ImageURL,
		&ea.Sentiment.Score, &ea.Sentiment.NormalizedScore, &ea.Sentiment.Confidence, &label, &method,
		&ea.ImpactScore, &geoTags, &topics, &people, &orgs, &places, &entTopics, &ea.ClusterID); err != nil {
		return nil, nil, fmt.Errorf("scan joined article: %w", err)
	}
	ea.ID = ra.ID
	ra.Category = Category(category)
	if t, err := time.Parse(time.RFC3339, published); err == nil {
		ra.PublishedAt = t
	}
	ea.Sentiment.Label = SentimentLabel(label)
	ea.Sentiment.Method = SentimentMethod(method)
	_ = json.Unmarshal([]byte(geoTags), &ea.GeoTags)
	_ = json.Unmarshal([]byte(topics), &ea.Topics)
	_ = json.Unmarshal([]byte(people), &ea.Entities.People)
	_ = json.Unmarshal([]byte(orgs), &ea.Entities.Organizations)
	_ = json.Unmarshal([]byte(places), &ea.Entities.Places)
	_ = json.Unmarshal([]byte(entTopics), &ea.Entities.Topics)
	return &ra, &ea, nil
}
