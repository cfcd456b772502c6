package validation

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/sentinel/internal/enricher"
	"github.com/aristath/sentinel/internal/store"
)

// Candidate axis values for the weight grid search.
var sentimentAxis = []float64{0.2, 0.3, 0.4, 0.5}
var clusterSizeAxis = []float64{0.15, 0.2, 0.3, 0.4}
var sourceTierAxis = []float64{0.1, 0.15, 0.2, 0.25}
var recencyAxis = []float64{0.05, 0.1, 0.15, 0.2}

const weightSumTolerance = 0.005

// DayInputs is one day's per-article impact inputs (sentiment, cluster
// size, source, recency) paired with that day's market change, the unit
// the weight optimizer grid-searches over.
type DayInputs struct {
	Date         string
	Articles     []enricher.ImpactInputs
	MarketChange float64
}

// WeightOptimizer grid-searches impact-score weight combinations (summing
// to 1.00) against a correlation objective, trying to beat the currently
// active weights. Rather than re-running clustering per candidate weight
// set, it recomputes each day's impact-weighted average sentiment directly
// and correlates that against market change.
type WeightOptimizer struct {
	db  *store.Store
	log zerolog.Logger
}

func NewWeightOptimizer(db *store.Store, log zerolog.Logger) *WeightOptimizer {
	return &WeightOptimizer{db: db, log: log.With().Str("component", "weight_optimizer").Logger()}
}

// Run grid-searches weight combinations and persists the best-correlating
// combination found, if any combination improves on the current Pearson r.
func (o *WeightOptimizer) Run(days []DayInputs) (*store.OptimizedWeights, error) {
	if len(days) < minBacktestPairs {
		return nil, fmt.Errorf("weight optimizer: need >= %d days, have %d", minBacktestPairs, len(days))
	}

	current, err := o.db.GetCurrentWeights()
	if err != nil {
		return nil, fmt.Errorf("load current weights: %w", err)
	}
	bestR := -2.0 // below any achievable correlation
	if current != nil {
		bestR = current.PearsonR
	}

	var best *store.OptimizedWeights
	for _, w := range gridCandidates() {
		r := correlationForWeights(days, w)
		if r > bestR {
			bestR = r
			candidate := store.OptimizedWeights{
				ComputedAt:   time.Now().UTC(),
				WSentiment:   w.Sentiment,
				WClusterSize: w.ClusterSize,
				WSourceTier:  w.SourceTier,
				WRecency:     w.Recency,
				PearsonR:     r,
			}
			best = &candidate
		}
	}

	if best == nil {
		o.log.Info().Msg("weight optimizer found no improving combination")
		return nil, nil
	}
	if err := o.db.SaveOptimizedWeights(*best); err != nil {
		return nil, fmt.Errorf("save optimized weights: %w", err)
	}
	o.log.Info().Float64("pearson_r", best.PearsonR).Msg("weight optimizer persisted improved weights")
	return best, nil
}

// gridCandidates enumerates every combination of the four fixed axes whose
// sum is within weightSumTolerance of 1.00.
func gridCandidates() []enricher.Weights {
	var out []enricher.Weights
	for _, ws := range sentimentAxis {
		for _, wc := range clusterSizeAxis {
			for _, wsrc := range sourceTierAxis {
				for _, wr := range recencyAxis {
					if math.Abs(ws+wc+wsrc+wr-1.0) >= weightSumTolerance {
						continue
					}
					out = append(out, enricher.Weights{
						Sentiment:   ws,
						ClusterSize: wc,
						SourceTier:  wsrc,
						Recency:     wr,
					})
				}
			}
		}
	}
	return out
}

func correlationForWeights(days []DayInputs, w enricher.Weights) float64 {
	x := make([]float64, len(days))
	y := make([]float64, len(days))
	for i, day := range days {
		var weighted, totalImpact float64
		for _, a := range day.Articles {
			a.Weights = w
			impact := enricher.ImpactScore(a)
			weighted += impact * float64(a.NormalizedSentiment)
			totalImpact += impact
		}
		mean := 0.0
		if totalImpact > 0 {
			mean = weighted / totalImpact
		}
		x[i] = mean
		y[i] = day.MarketChange
	}
	if len(x) < 2 {
		return 0
	}
	return stat.Correlation(x, y, nil)
}
