package enricher

import (
	"errors"
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

func TestLexiconScorerPositiveNegativeNeutral(t *testing.T) {
	scorer := newLexiconScorer()

	pos := scorer.score("NVIDIA beats earnings estimates with record growth")
	assert.Equal(t, store.SentimentPositive, pos.Label)
	assert.Equal(t, store.SentimentLexicon, pos.Method)

	neg := scorer.score("AMD warns of GPU shortage amid layoffs and losses")
	assert.Equal(t, store.SentimentNegative, neg.Label)

	neu := scorer.score("the committee meets on tuesday to discuss the agenda")
	assert.Equal(t, store.SentimentNeutral, neu.Label)
}

func TestLexiconScorerBounds(t *testing.T) {
	scorer := newLexiconScorer()
	s := scorer.score("crash crash crash crash crash crash crash crash bankruptcy collapse fraud scandal")
	assert.GreaterOrEqual(t, s.NormalizedScore, -100)
	assert.LessOrEqual(t, s.NormalizedScore, 100)
	assert.LessOrEqual(t, s.Confidence, 0.95)
}

type fakeModel struct {
	label string
	conf  float64
	err   error
}

func (f *fakeModel) Classify(text string) (string, float64, error) { return f.label, f.conf, f.err }

func TestLazyModelStickyFailure(t *testing.T) {
	attempts := 0
	loader := func() (SentimentModel, error) {
		attempts++
		return nil, errors.New("ENOENT")
	}
	m := NewLazyModel(loader)

	_, ok := m.resolve()
	assert.False(t, ok)
	_, ok = m.resolve()
	assert.False(t, ok)
	assert.Equal(t, 1, attempts, "a failed load attempt should not be retried")
}

func TestScorerPrefersModelWhenAvailable(t *testing.T) {
	loader := func() (SentimentModel, error) { return &fakeModel{label: "positive", conf: 0.8}, nil }
	scorer := NewScorer(NewLazyModel(loader), nil)

	s := scorer.Score("anything")
	assert.Equal(t, store.SentimentTransformer, s.Method)
	assert.Equal(t, 40, s.NormalizedScore) // round(0.8*50)
}

func TestGeoTags(t *testing.T) {
	tags := GeoTags("New sanctions imposed amid rising trade war tensions over Taiwan Strait")
	assert.Contains(t, tags, "sanctions")
	assert.Contains(t, tags, "trade_war")
	assert.Contains(t, tags, "regional_hotspot")
}

func TestExtractEntitiesDeduplicatesAndClassifies(t *testing.T) {
	entities := ExtractEntities("NVIDIA Corp and Taiwan Semiconductor discussed chip exports with Taiwan officials. NVIDIA Corp confirmed the deal.")
	assert.Contains(t, entities.Organizations, "NVIDIA Corp")
	assert.Contains(t, entities.Places, "Taiwan")
	assert.Len(t, entities.Organizations, 1, "duplicate mention should not appear twice")
}

func TestImpactScoreBounds(t *testing.T) {
	score := ImpactScore(ImpactInputs{
		NormalizedSentiment: -90,
		ClusterSize:         40,
		Source:              "Reuters",
		PublishedAt:         time.Now(),
		Weights:             DefaultWeights,
	})
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 100.0)
}

func TestWeightPolicyFallsBackToDefaultsWithNoOptimizerData(t *testing.T) {
	db := newTestStore(t)
	p := NewWeightPolicy(db)
	assert.Equal(t, DefaultWeights, p.Resolve())
}
