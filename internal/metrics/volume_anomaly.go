package metrics

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/sentinel/internal/store"
)

const anomalyZThreshold = 2.0
const anomalyMinHistoryDays = 3

// Anomaly is an alert surfaced when a category's article volume deviates
// sharply from its recent history.
type Anomaly struct {
	Category   store.Category
	Date       string
	ZScore     float64
	Multiplier float64
	Message    string
}

// VolumeAnomalyDetector persists per-(date,category) article counts and
// flags anomalies against the prior 7-day history.
type VolumeAnomalyDetector struct {
	db  *store.Store
	log zerolog.Logger
}

func NewVolumeAnomalyDetector(db *store.Store, log zerolog.Logger) *VolumeAnomalyDetector {
	return &VolumeAnomalyDetector{db: db, log: log.With().Str("component", "volume_anomaly").Logger()}
}

// Run persists today's count for category and, if enough history exists,
// returns an anomaly when the Z-score exceeds the threshold.
func (d *VolumeAnomalyDetector) Run(date string, category store.Category, count int) (*Anomaly, error) {
	if err := d.db.SaveDailyVolume(date, category, count); err != nil {
		return nil, fmt.Errorf("save daily volume: %w", err)
	}

	history, err := d.db.GetVolumeHistory(category, 7)
	if err != nil {
		return nil, fmt.Errorf("load volume history: %w", err)
	}

	var counts []float64
	for _, h := range history {
		if h.Date == date {
			continue // today's own just-persisted count must not skew its own baseline
		}
		counts = append(counts, float64(h.ArticleCount))
	}
	if len(counts) < anomalyMinHistoryDays {
		return nil, nil
	}
	mean := stat.Mean(counts, nil)
	stddev := stat.StdDev(counts, nil)
	if stddev == 0 {
		return nil, nil
	}

	z := (float64(count) - mean) / stddev
	if z <= anomalyZThreshold {
		return nil, nil
	}

	multiplier := math.Round(float64(count)/mean*10) / 10
	anomaly := &Anomaly{
		Category:   category,
		Date:       date,
		ZScore:     z,
		Multiplier: multiplier,
		Message:    fmt.Sprintf("%gx normal coverage on %s", multiplier, category),
	}
	d.log.Warn().Str("category", string(category)).Float64("z", z).Msg("volume anomaly detected")
	return anomaly, nil
}
