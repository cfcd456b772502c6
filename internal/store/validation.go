package store

import (
	"database/sql"
	"fmt"
	"time"
)

// SaveMarketData inserts daily candles, skipping dates already present.
func (s *Store) SaveMarketData(batch []MarketDatapoint) error {
	if len(batch) == 0 {
		return nil
	}
	return s.WithTransaction(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO market_data (date, symbol, close, change_pct, volume)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(date, symbol) DO NOTHING
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, m := range batch {
			if _, err := stmt.Exec(m.Date, m.Symbol, m.Close, m.ChangePct, m.Volume); err != nil {
				return fmt.Errorf("insert market data %s/%s: %w", m.Symbol, m.Date, err)
			}
		}
		return nil
	})
}

// GetMarketData returns the last `days` days of candles for symbol, oldest first.
func (s *Store) GetMarketData(symbol string, days int) ([]MarketDatapoint, error) {
	rows, err := s.conn.Query(`
		SELECT date, symbol, close, change_pct, volume FROM market_data
		WHERE symbol = ? AND date(date) >= date('now', ?)
		ORDER BY date ASC
	`, symbol, fmt.Sprintf("-%d days", days))
	if err != nil {
		return nil, fmt.Errorf("query market data: %w", err)
	}
	defer rows.Close()

	var out []MarketDatapoint
	for rows.Next() {
		var m MarketDatapoint
		if err := rows.Scan(&m.Date, &m.Symbol, &m.Close, &m.ChangePct, &m.Volume); err != nil {
			return nil, fmt.Errorf("scan market data: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SaveBacktest persists the latest correlation backtest result.
func (s *Store) SaveBacktest(b BacktestResult) error {
	_, err := s.conn.Exec(`
		INSERT INTO backtests (run_at, pearson_r, spearman_rho, direction_accuracy, pair_count)
		VALUES (?, ?, ?, ?, ?)
	`, b.RunAt.UTC().Format(time.RFC3339), b.PearsonR, b.SpearmanRho, b.DirectionAccuracy, b.PairCount)
	if err != nil {
		return fmt.Errorf("save backtest: %w", err)
	}
	return nil
}

// GetLatestBacktest returns the most recent backtest result, or nil if none exists.
func (s *Store) GetLatestBacktest() (*BacktestResult, error) {
	row := s.conn.QueryRow(`
		SELECT run_at, pearson_r, spearman_rho, direction_accuracy, pair_count
		FROM backtests ORDER BY run_at DESC LIMIT 1
	`)
	var b BacktestResult
	var runAt string
	if err := row.Scan(&runAt, &b.PearsonR, &b.SpearmanRho, &b.DirectionAccuracy, &b.PairCount); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get latest backtest: %w", err)
	}
	if t, err := time.Parse(time.RFC3339, runAt); err == nil {
		b.RunAt = t
	}
	return &b, nil
}

// SaveWeeklyScorecard upserts the scorecard for a calendar week.
func (s *Store) SaveWeeklyScorecard(sc WeeklyScorecard) error {
	_, err := s.conn.Exec(`
		INSERT INTO weekly_scorecards (week_start, direction_accuracy, pearson_r, grade)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(week_start) DO UPDATE SET
			direction_accuracy = excluded.direction_accuracy, pearson_r = excluded.pearson_r, grade = excluded.grade
	`, sc.WeekStart, sc.DirectionAccuracy, sc.PearsonR, sc.Grade)
	if err != nil {
		return fmt.Errorf("save weekly scorecard: %w", err)
	}
	return nil
}

// SaveOptimizedWeights persists the best weight combination from a grid search run.
func (s *Store) SaveOptimizedWeights(w OptimizedWeights) error {
	_, err := s.conn.Exec(`
		INSERT INTO optimized_weights (computed_at, w_sentiment, w_cluster_size, w_source_tier, w_recency, pearson_r)
		VALUES (?, ?, ?, ?, ?, ?)
	`, w.ComputedAt.UTC().Format(time.RFC3339), w.WSentiment, w.WClusterSize, w.WSourceTier, w.WRecency, w.PearsonR)
	if err != nil {
		return fmt.Errorf("save optimized weights: %w", err)
	}
	return nil
}

// GetCurrentWeights returns the most recent optimized weights, or nil if none exist.
func (s *Store) GetCurrentWeights() (*OptimizedWeights, error) {
	row := s.conn.QueryRow(`
		SELECT computed_at, w_sentiment, w_cluster_size, w_source_tier, w_recency, pearson_r
		FROM optimized_weights ORDER BY computed_at DESC LIMIT 1
	`)
	var w OptimizedWeights
	var computedAt string
	if err := row.Scan(&computedAt, &w.WSentiment, &w.WClusterSize, &w.WSourceTier, &w.WRecency, &w.PearsonR); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get current weights: %w", err)
	}
	if t, err := time.Parse(time.RFC3339, computedAt); err == nil {
		w.ComputedAt = t
	}
	return &w, nil
}
