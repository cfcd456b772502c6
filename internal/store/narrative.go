package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// SaveNarrativeThreads inserts or replaces a batch of narrative threads.
func (s *Store) SaveNarrativeThreads(batch []NarrativeThread) error {
	if len(batch) == 0 {
		return nil
	}
	return s.WithTransaction(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO narrative_threads (id, title, first_seen, last_seen, duration_days, cluster_ids, sentiment_arc, entities, escalation, status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				title = excluded.title, last_seen = excluded.last_seen, duration_days = excluded.duration_days,
				cluster_ids = excluded.cluster_ids, sentiment_arc = excluded.sentiment_arc,
				entities = excluded.entities, escalation = excluded.escalation, status = excluded.status
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, t := range batch {
			clusterIDs, _ := json.Marshal(t.ClusterIDs)
			arc, _ := json.Marshal(t.SentimentArc)
			entities, _ := json.Marshal(t.Entities)
			if _, err := stmt.Exec(t.ID, t.Title, t.FirstSeen, t.LastSeen, t.DurationDays,
				string(clusterIDs), string(arc), string(entities), string(t.Escalation), string(t.Status)); err != nil {
				return fmt.Errorf("insert narrative thread %s: %w", t.ID, err)
			}
		}
		return nil
	})
}

// GetNarrativeThreads returns threads updated within the last `days` days,
// optionally filtered by status.
func (s *Store) GetNarrativeThreads(days int, status *ThreadStatus) ([]NarrativeThread, error) {
	query := `
		SELECT id, title, first_seen, last_seen, duration_days, cluster_ids, sentiment_arc, entities, escalation, status
		FROM narrative_threads
		WHERE date(last_seen) >= date('now', ?)
	`
	args := []interface{}{fmt.Sprintf("-%d days", days)}
	if status != nil {
		query += " AND status = ?"
		args = append(args, string(*status))
	}
	query += " ORDER BY last_seen DESC"

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query narrative threads: %w", err)
	}
	defer rows.Close()

	var out []NarrativeThread
	for rows.Next() {
		var t NarrativeThread
		var clusterIDs, arc, entities, escalation, statusStr string
		if err := rows.Scan(&t.ID, &t.Title, &t.FirstSeen, &t.LastSeen, &t.DurationDays,
			&clusterIDs, &arc, &entities, &escalation, &statusStr); err != nil {
			return nil, fmt.Errorf("scan narrative thread: %w", err)
		}
		_ = json.Unmarshal([]byte(clusterIDs), &t.ClusterIDs)
		_ = json.Unmarshal([]byte(arc), &t.SentimentArc)
		_ = json.Unmarshal([]byte(entities), &t.Entities)
		t.Escalation = EscalationState(escalation)
		t.Status = ThreadStatus(statusStr)
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetActiveThreadsTouchingCluster returns active threads whose cluster_ids
// contains clusterID, used by the narrative engine to detect that a matched
// historical cluster is already part of a thread.
func (s *Store) GetActiveThreadsTouchingCluster(clusterID string) ([]NarrativeThread, error) {
	active := ThreadActive
	threads, err := s.GetNarrativeThreads(3650, &active)
	if err != nil {
		return nil, err
	}
	var out []NarrativeThread
	for _, t := range threads {
		for _, cid := range t.ClusterIDs {
			if cid == clusterID {
				out = append(out, t)
				break
			}
		}
	}
	return out, nil
}
