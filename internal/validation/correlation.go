package validation

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/sentinel/internal/store"
)

const minBacktestPairs = 5

// AlignedPair is one day's (sentiment or GPR, market change%) observation,
// produced by joining the pipeline's own output against fetched candles on
// date.
type AlignedPair struct {
	Date          string
	SentimentSide float64
	MarketChange  float64
}

// Align joins daily mean-sentiment points and market candles on date,
// keeping only dates present in both series.
func Align(sentiment []store.DailySentimentPoint, candles []store.MarketDatapoint) []AlignedPair {
	bySentimentDate := make(map[string]float64, len(sentiment))
	for _, s := range sentiment {
		bySentimentDate[s.Date] = s.MeanSentiment
	}
	var out []AlignedPair
	for _, c := range candles {
		if score, ok := bySentimentDate[c.Date]; ok {
			out = append(out, AlignedPair{Date: c.Date, SentimentSide: score, MarketChange: c.ChangePct})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// Correlator computes Pearson r, Spearman rho, and directional accuracy over
// an aligned pair set. Backtest returns an error if fewer than
// minBacktestPairs observations are present.
type Correlator struct {
	db  *store.Store
	log zerolog.Logger
}

func NewCorrelator(db *store.Store, log zerolog.Logger) *Correlator {
	return &Correlator{db: db, log: log.With().Str("component", "validation").Logger()}
}

// Backtest runs the correlation over pairs and persists the result.
func (c *Correlator) Backtest(pairs []AlignedPair) (store.BacktestResult, error) {
	if len(pairs) < minBacktestPairs {
		return store.BacktestResult{}, fmt.Errorf("backtest: need >= %d aligned days, have %d", minBacktestPairs, len(pairs))
	}

	x := make([]float64, len(pairs))
	y := make([]float64, len(pairs))
	for i, p := range pairs {
		x[i] = p.SentimentSide
		y[i] = p.MarketChange
	}

	pearson := stat.Correlation(x, y, nil)
	spearman := spearmanRho(x, y)
	accuracy := directionAccuracy(pairs)

	result := store.BacktestResult{
		RunAt:             time.Now().UTC(),
		PearsonR:          pearson,
		SpearmanRho:       spearman,
		DirectionAccuracy: accuracy,
		PairCount:         len(pairs),
	}
	if err := c.db.SaveBacktest(result); err != nil {
		return store.BacktestResult{}, fmt.Errorf("save backtest: %w", err)
	}
	c.log.Info().Float64("pearson_r", pearson).Float64("direction_accuracy", accuracy).Int("pairs", len(pairs)).Msg("backtest complete")
	return result, nil
}

// directionAccuracy is the fraction of days where sentiment sign matched
// market-change sign.
func directionAccuracy(pairs []AlignedPair) float64 {
	if len(pairs) == 0 {
		return 0
	}
	matches := 0
	for _, p := range pairs {
		if sign(p.SentimentSide) == sign(p.MarketChange) {
			matches++
		}
	}
	return float64(matches) / float64(len(pairs))
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// spearmanRho computes Spearman's rank correlation as Pearson correlation
// over rank-transformed series. gonum's stat package doesn't expose Spearman
// directly; rank-then-Pearson is the standard reduction.
func spearmanRho(x, y []float64) float64 {
	return stat.Correlation(rank(x), rank(y), nil)
}

func rank(values []float64) []float64 {
	type indexed struct {
		v   float64
		idx int
	}
	sorted := make([]indexed, len(values))
	for i, v := range values {
		sorted[i] = indexed{v: v, idx: i}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].v < sorted[j].v })

	ranks := make([]float64, len(values))
	i := 0
	for i < len(sorted) {
		j := i
		for j+1 < len(sorted) && sorted[j+1].v == sorted[i].v {
			j++
		}
		// Tied values share the average rank of their span.
		avgRank := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[sorted[k].idx] = avgRank
		}
		i = j + 1
	}
	return ranks
}

// Grade maps a backtest onto the weekly scorecard letter grade.
func Grade(directionAccuracy, pearsonR float64) string {
	score := directionAccuracy*0.6 + math.Abs(pearsonR)*0.4
	switch {
	case score >= 0.8:
		return "A"
	case score >= 0.65:
		return "B"
	case score >= 0.5:
		return "C"
	case score >= 0.35:
		return "D"
	default:
		return "F"
	}
}

// WeeklyScorecard computes and persists the grade for the week starting weekStart.
func (c *Correlator) WeeklyScorecard(weekStart string, pairs []AlignedPair) (store.WeeklyScorecard, error) {
	x := make([]float64, len(pairs))
	y := make([]float64, len(pairs))
	for i, p := range pairs {
		x[i] = p.SentimentSide
		y[i] = p.MarketChange
	}
	var pearson float64
	if len(pairs) >= 2 {
		pearson = stat.Correlation(x, y, nil)
	}
	accuracy := directionAccuracy(pairs)

	sc := store.WeeklyScorecard{
		WeekStart:         weekStart,
		DirectionAccuracy: accuracy,
		PearsonR:          pearson,
		Grade:             Grade(accuracy, pearson),
	}
	if err := c.db.SaveWeeklyScorecard(sc); err != nil {
		return store.WeeklyScorecard{}, fmt.Errorf("save weekly scorecard: %w", err)
	}
	return sc, nil
}
