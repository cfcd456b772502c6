package store

import "fmt"

// StageStatus is the tagged variant for a pipeline stage's run outcome.
type StageStatus string

const (
	StageSuccess StageStatus = "success"
	StageFailure StageStatus = "failure"
	StageSkipped StageStatus = "skipped"
)

// StageHealthRecord is one row of the orchestrator's health sidecar.
type StageHealthRecord struct {
	Date       string
	Step       string
	Status     StageStatus
	DurationMS int64
	ItemCount  int
	Error      string
}

// SaveStageHealth upserts a stage health record for (date, step).
func (s *Store) SaveStageHealth(r StageHealthRecord) error {
	_, err := s.conn.Exec(`
		INSERT INTO stage_health (date, step, status, duration_ms, item_count, error)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(date, step) DO UPDATE SET
			status = excluded.status, duration_ms = excluded.duration_ms,
			item_count = excluded.item_count, error = excluded.error
	`, r.Date, r.Step, string(r.Status), r.DurationMS, r.ItemCount, r.Error)
	if err != nil {
		return fmt.Errorf("save stage health: %w", err)
	}
	return nil
}

// GetStageHealthForDate returns every stage's health record for one run date.
func (s *Store) GetStageHealthForDate(date string) ([]StageHealthRecord, error) {
	rows, err := s.conn.Query(`
		SELECT date, step, status, duration_ms, item_count, error FROM stage_health WHERE date = ?
	`, date)
	if err != nil {
		return nil, fmt.Errorf("query stage health: %w", err)
	}
	defer rows.Close()

	var out []StageHealthRecord
	for rows.Next() {
		var r StageHealthRecord
		var status string
		if err := rows.Scan(&r.Date, &r.Step, &status, &r.DurationMS, &r.ItemCount, &r.Error); err != nil {
			return nil, fmt.Errorf("scan stage health: %w", err)
		}
		r.Status = StageStatus(status)
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetStageHealthHistory returns every stage health record from the last
// `days` days, oldest first.
func (s *Store) GetStageHealthHistory(days int) ([]StageHealthRecord, error) {
	rows, err := s.conn.Query(`
		SELECT date, step, status, duration_ms, item_count, error FROM stage_health
		WHERE date(date) >= date('now', ?)
		ORDER BY date ASC
	`, fmt.Sprintf("-%d days", days))
	if err != nil {
		return nil, fmt.Errorf("query stage health history: %w", err)
	}
	defer rows.Close()

	var out []StageHealthRecord
	for rows.Next() {
		var r StageHealthRecord
		var status string
		if err := rows.Scan(&r.Date, &r.Step, &status, &r.DurationMS, &r.ItemCount, &r.Error); err != nil {
			return nil, fmt.Errorf("scan stage health: %w", err)
		}
		r.Status = StageStatus(status)
		out = append(out, r)
	}
	return out, rows.Err()
}
