package metrics

import (
	"testing"
	"time"

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

func TestComputeGPRWeightsMatches(t *testing.T) {
	result := ComputeGPR("2026-07-29", []string{"Nuclear tension rises amid new sanctions", "Market rallies on earnings"})
	assert.Greater(t, result.Score, 0.0)
	assert.LessOrEqual(t, result.Score, 100.0)
	assert.Contains(t, result.KeywordCounts, "nuclear")
}

func TestComputeTrendRequiresFullHistory(t *testing.T) {
	assert.Equal(t, TrendStable, ComputeTrend([]float64{10, 20}))
}

func TestComputeTrendClassifiesRisingAndFalling(t *testing.T) {
	prior7 := []float64{10, 10, 10, 10, 10, 10, 10}
	risingLast7 := []float64{20, 20, 20, 20, 20, 20, 20}
	assert.Equal(t, TrendRising, ComputeTrend(append(append([]float64{}, prior7...), risingLast7...)))

	fallingLast7 := []float64{1, 1, 1, 1, 1, 1, 1}
	assert.Equal(t, TrendFalling, ComputeTrend(append(append([]float64{}, prior7...), fallingLast7...)))
}

func TestNormalizeEntity(t *testing.T) {
	assert.Equal(t, "Nvidia Corp", normalizeEntity("NVIDIA corp,"))
}

func TestEntityTrackerOnlyPersistsAtLeastTwoMentions(t *testing.T) {
	db := newTestStore(t)
	tracker := NewEntityTracker(db, zerolog.Nop())

	mentions := []ArticleMention{
		{NormalizedSentiment: 40, Entities: []string{"NVIDIA"}, EntityType: store.EntityOrganization},
		{NormalizedSentiment: -20, Entities: []string{"NVIDIA"}, EntityType: store.EntityOrganization},
		{NormalizedSentiment: 10, Entities: []string{"Solo Mention Co"}, EntityType: store.EntityOrganization},
	}

	// History lookups are relative to the current date, so record today.
	n, err := tracker.Run(time.Now().UTC().Format("2006-01-02"), mentions)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	history, err := db.GetEntitySentimentHistory("Nvidia", 7)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 10.0, history[0].AvgSentiment)
}

func TestVolumeAnomalyDetectorFlagsSpike(t *testing.T) {
	db := newTestStore(t)
	detector := NewVolumeAnomalyDetector(db, zerolog.Nop())

	// Six prior days averaging 10 articles, with enough spread that the
	// standard deviation is non-zero; history lookups are relative to today.
	today := time.Now().UTC()
	history := []int{8, 12, 9, 11, 10, 10}
	for i, count := range history {
		d := today.AddDate(0, 0, -(len(history) - i)).Format("2006-01-02")
		_, err := detector.Run(d, store.CategoryCybersecurity, count)
		require.NoError(t, err)
	}

	anomaly, err := detector.Run(today.Format("2006-01-02"), store.CategoryCybersecurity, 50)
	require.NoError(t, err)
	require.NotNil(t, anomaly)
	assert.Equal(t, 5.0, anomaly.Multiplier)
}

func TestVolumeAnomalyDetectorNoAlertWithoutEnoughHistory(t *testing.T) {
	db := newTestStore(t)
	detector := NewVolumeAnomalyDetector(db, zerolog.Nop())
	anomaly, err := detector.Run("2026-07-29", store.CategoryCybersecurity, 500)
	require.NoError(t, err)
	assert.Nil(t, anomaly)
}
