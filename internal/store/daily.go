package store

// GetEnrichedArticlesForDate loads every enriched article whose raw row was
// published on date (YYYY-MM-DD, UTC), the batch the orchestrator feeds to
// clustering for one daily run.
func (s *Store) GetEnrichedArticlesForDate(date string) ([]RawArticle, []EnrichedArticle, error) {
	rows, err := s.conn.Query(`
		SELECT r.id, r.title, r.description, r.content, r.url, r.source, r.source_id, r.published_at, r.category, r.ticker, r.provider, r.image_url,
			e.sentiment_score, e.sentiment_normalized, e.sentiment_confidence, e.sentiment_label, e.sentiment_method,
			e.impact_score, e.geo_tags, e.topics, e.entities_people, e.entities_organizations, e.entities_places, e.entities_topics, e.cluster_id
		FROM raw_articles r JOIN enriched_articles e ON e.id = r.id
		WHERE date(r.published_at) = date(?)
	`, date)
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
