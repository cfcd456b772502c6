package validation

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.Open(store.Config{Path: "file::memory:?cache=shared&mode=memory"}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestAlignJoinsOnlyMatchingDates(t *testing.T) {
	sentiment := []store.DailySentimentPoint{
		{Date: "2026-07-20", MeanSentiment: 10},
		{Date: "2026-07-21", MeanSentiment: -20},
		{Date: "2026-07-23", MeanSentiment: 5},
	}
	candles := []store.MarketDatapoint{
		{Date: "2026-07-21", ChangePct: -1.5},
		{Date: "2026-07-22", ChangePct: 0.8},
		{Date: "2026-07-23", ChangePct: 0.3},
	}

	pairs := Align(sentiment, candles)
	require.Len(t, pairs, 2)
	assert.Equal(t, "2026-07-21", pairs[0].Date)
	assert.Equal(t, "2026-07-23", pairs[1].Date)
}

func TestDirectionAccuracyAllAgree(t *testing.T) {
	pairs := []AlignedPair{
		{SentimentSide: 10, MarketChange: 2},
		{SentimentSide: -5, MarketChange: -1},
		{SentimentSide: 0, MarketChange: 0},
	}
	assert.InDelta(t, 1.0, directionAccuracy(pairs), 1e-9)
}

func TestSpearmanRhoHandlesTies(t *testing.T) {
	x := []float64{1, 2, 2, 3}
	y := []float64{4, 5, 5, 6}
	rho := spearmanRho(x, y)
	assert.InDelta(t, 1.0, rho, 1e-9)
}

func TestGradeBuckets(t *testing.T) {
	assert.Equal(t, "A", Grade(0.9, 0.8))
	assert.Equal(t, "F", Grade(0.1, 0.0))
}

func TestBacktestRequiresMinimumPairs(t *testing.T) {
	db := newTestStore(t)
	c := NewCorrelator(db, zerolog.Nop())
	_, err := c.Backtest([]AlignedPair{{Date: "2026-07-20", SentimentSide: 1, MarketChange: 1}})
	require.Error(t, err)
}

func TestBacktestPersistsResult(t *testing.T) {
	db := newTestStore(t)
	c := NewCorrelator(db, zerolog.Nop())
	pairs := []AlignedPair{
		{Date: "2026-07-01", SentimentSide: 10, MarketChange: 2},
		{Date: "2026-07-02", SentimentSide: -5, MarketChange: -1},
		{Date: "2026-07-03", SentimentSide: 20, MarketChange: 3},
		{Date: "2026-07-04", SentimentSide: -10, MarketChange: -2},
		{Date: "2026-07-05", SentimentSide: 5, MarketChange: 1},
	}
	result, err := c.Backtest(pairs)
	require.NoError(t, err)
	assert.Equal(t, 5, result.PairCount)

	latest, err := db.GetLatestBacktest()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.InDelta(t, result.PearsonR, latest.PearsonR, 1e-9)
}

// Every evaluated weight combo must satisfy
// |w_s + w_c + w_src + w_r - 1| < 0.005.
func TestGridCandidatesSumToOne(t *testing.T) {
	candidates := gridCandidates()
	require.NotEmpty(t, candidates)
	for _, w := range candidates {
		sum := w.Sentiment + w.ClusterSize + w.SourceTier + w.Recency
		assert.Less(t, math.Abs(sum-1.0), 0.005)
	}
}

func TestGridCandidatesDrawFromSpecAxes(t *testing.T) {
	for _, w := range gridCandidates() {
		assert.Contains(t, sentimentAxis, w.Sentiment)
		assert.Contains(t, clusterSizeAxis, w.ClusterSize)
		assert.Contains(t, sourceTierAxis, w.SourceTier)
		assert.Contains(t, recencyAxis, w.Recency)
	}
}
