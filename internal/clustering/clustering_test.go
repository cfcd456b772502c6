package clustering

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel/internal/cache"
	"github.com/aristath/sentinel/internal/store"
)

func TestSemanticThreshold(t *testing.T) {
	assert.Equal(t, 0.55, semanticThreshold(10))
	assert.Equal(t, 0.50, semanticThreshold(51))
}

func TestCoalesceSingletons(t *testing.T) {
	groups := [][]int{{0, 1}, {2}, {3}, {4}}
	got := coalesceSingletons(groups)
	require.Len(t, got, 2)
	assert.ElementsMatch(t, []int{2, 3, 4}, got[1])
}

func TestCoalesceSingletonsDropsWhenFewerThanThree(t *testing.T) {
	groups := [][]int{{0, 1}, {2}}
	got := coalesceSingletons(groups)
	require.Len(t, got, 1)
}

func TestKmeansClusterCount(t *testing.T) {
	assert.Equal(t, 2, kmeansClusterCount(5))
	assert.Equal(t, 2, kmeansClusterCount(15))
	assert.Equal(t, 15, kmeansClusterCount(1000))
}

func TestExtractKeywordsRanksByFrequency(t *testing.T) {
	kws := ExtractKeywords([]string{"chip export chip sanctions", "chip tariffs export"})
	require.NotEmpty(t, kws)
	assert.Equal(t, "chip", kws[0])
}

func TestTopicFallsBackToTruncatedHeadline(t *testing.T) {
	headline := "This is a very long headline that definitely exceeds forty seven characters in length"
	topic := Topic(nil, headline)
	assert.True(t, len([]rune(topic)) <= 48)
	assert.Contains(t, topic, "…")
}

func TestSourceConfidenceTiers(t *testing.T) {
	tier, score := SourceConfidence([]string{"Reuters", "Bloomberg", "CNBC", "AP"})
	assert.Equal(t, SourceConfidenceHigh, tier)
	assert.Equal(t, 65.0, score)

	tier, _ = SourceConfidence([]string{"Reuters"})
	assert.Equal(t, SourceConfidenceLow, tier)
}

func TestHashedNgramEmbedderProducesUnitVectors(t *testing.T) {
	e := NewHashedNgramEmbedder()
	vecs := e.Embed([]string{"chip export controls tighten"})
	require.Len(t, vecs, 1)
	var norm float64
	for _, v := range vecs[0] {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 0.01)
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.Open(store.Config{Path: "file::memory:?cache=shared&mode=memory"}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestClusteringRunGroupsAndCachesByArticleSet(t *testing.T) {
	db := newTestStore(t)
	cc := cache.NewClusterCache(db)
	clustering := New(db, cc, NewHashedNgramEmbedder(), zerolog.Nop())

	now := time.Now()
	articles := []articleView{
		{ID: "a1", Text: "NVIDIA beats earnings estimates with record chip demand", Source: "Reuters", Category: store.CategoryAIComputeInfra, PublishedAt: now, Sentiment: 40, Impact: 60},
		{ID: "a2", Text: "NVIDIA beats earnings estimates with record chip demand again", Source: "Bloomberg", Category: store.CategoryAIComputeInfra, PublishedAt: now, Sentiment: 35, Impact: 55},
		{ID: "a3", Text: "AMD warns of GPU shortage amid layoffs", Source: "CNBC", Category: store.CategoryAIComputeInfra, PublishedAt: now, Sentiment: -40, Impact: 50},
	}

	clusters, err := clustering.Run(articles)
	require.NoError(t, err)
	require.NotEmpty(t, clusters)

	persisted, err := db.GetClustersByDate(now.Format("2006-01-02"))
	require.NoError(t, err)
	assert.NotEmpty(t, persisted)

	clusters2, err := clustering.Run(articles)
	require.NoError(t, err)
	assert.Equal(t, clusters, clusters2, "same article set should return the cached result verbatim")
}
