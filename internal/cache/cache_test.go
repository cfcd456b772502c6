package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel/internal/store"
	"github.com/rs/zerolog"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.Open(store.Config{Path: "file::memory:?cache=shared&mode=memory"}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSentimentCacheRoundTrip(t *testing.T) {
	c := NewSentimentCache()
	s := store.Sentiment{Score: 0.4, NormalizedScore: 40, Confidence: 0.8, Label: store.SentimentPositive}

	c.Put("  Fed Signals Rate Pause  ", s)

	got, ok := c.Get("fed signals rate pause")
	require.True(t, ok)
	assert.Equal(t, s, got)

	_, ok = c.Get("unrelated headline")
	assert.False(t, ok)
}

func TestSentimentCacheSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c := NewSentimentCache()
	c.Put("alpha headline", store.Sentiment{Score: 0.1, Label: store.SentimentNeutral})
	c.Put("beta headline", store.Sentiment{Score: -0.6, Label: store.SentimentNegative})

	require.NoError(t, c.SaveSnapshot(dir))

	restored := NewSentimentCache()
	require.NoError(t, restored.LoadSnapshot(dir))

	got, ok := restored.Get("alpha headline")
	require.True(t, ok)
	assert.Equal(t, store.SentimentNeutral, got.Label)

	got, ok = restored.Get("beta headline")
	require.True(t, ok)
	assert.Equal(t, -0.6, got.Score)
}

func TestSentimentCacheSnapshotMissingFileIsNotAnError(t *testing.T) {
	c := NewSentimentCache()
	require.NoError(t, c.LoadSnapshot(t.TempDir()))
}

func TestClusterCacheRoundTrip(t *testing.T) {
	db := newTestStore(t)
	cc := NewClusterCache(db)

	ids := []string{"b", "a", "c"}
	clusters := []store.Cluster{{ID: "cl1", Topic: "rate cuts", ArticleCount: 3}}

	_, ok, err := cc.Get(ids)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cc.Put(ids, clusters))

	got, ok, err := cc.Get([]string{"c", "b", "a"}) // order-independent key
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "rate cuts", got[0].Topic)
}

func TestBriefingCacheGateAndRoundTrip(t *testing.T) {
	db := newTestStore(t)
	bc := NewBriefingCache(db)

	clusters := []store.Cluster{
		{Topic: "chip export curbs", ArticleCount: 5, AggregateSentiment: -0.3, Keywords: []string{"export", "chips", "curbs"}},
	}

	decision, err := bc.CheckBeforeLLMCall(clusters)
	require.NoError(t, err)
	assert.True(t, decision.ShouldCall)
	assert.Nil(t, decision.Cached)

	briefing := store.DailyBriefing{
		Date:             "2026-07-29",
		ExecutiveSummary: "Chip export curbs tighten.",
		CacheHash:        decision.InputHash,
		Source:           store.BriefingSourceLLM,
		GeneratedAt:      time.Now(),
	}
	require.NoError(t, bc.Put(decision.InputHash, briefing))

	decision2, err := bc.CheckBeforeLLMCall(clusters)
	require.NoError(t, err)
	assert.False(t, decision2.ShouldCall)
	require.NotNil(t, decision2.Cached)
	assert.Equal(t, "Chip export curbs tighten.", decision2.Cached.ExecutiveSummary)
}
