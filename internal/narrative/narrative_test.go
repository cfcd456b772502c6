package narrative

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

func TestClassifyEscalation(t *testing.T) {
	assert.Equal(t, store.EscalationRising, classifyEscalation([]float64{-30, -60}))
	assert.Equal(t, store.EscalationDeclining, classifyEscalation([]float64{-60, -30}))
	assert.Equal(t, store.EscalationStable, classifyEscalation([]float64{-30, -35}))
}

func TestDurationDays(t *testing.T) {
	assert.Equal(t, 2, durationDays("2026-07-01", "2026-07-03"))
}

func seedEnrichedArticle(t *testing.T, db *store.Store, id string, published time.Time, category store.Category, entities store.Entities, keywords []string, sentiment int) store.Cluster {
	t.Helper()
	require.NoError(t, db.SaveRawArticles([]store.RawArticle{{
		ID: id, URL: "https://example.com/" + id, Title: "headline " + id, Source: "Reuters",
		PublishedAt: published, Category: category,
	}}))
	require.NoError(t, db.SaveEnrichedArticles([]store.EnrichedArticle{{
		ID: id, Sentiment: store.Sentiment{NormalizedScore: sentiment}, Entities: entities,
	}}))
	return store.Cluster{
		ID: "cluster-" + id, Date: published.Format("2006-01-02"), Topic: "chip export curbs tighten",
		Keywords: keywords, ArticleCount: 1, AggregateSentiment: float64(sentiment), AggregateImpact: 50,
		Categories: []store.Category{category},
		DateRange:  store.DateRange{Earliest: published, Latest: published},
		MemberIDs:  []string{id},
	}
}

func TestRunCreatesNewThreadOnMatch(t *testing.T) {
	db := newTestStore(t)
	day1 := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	day3 := time.Date(2026, 7, 3, 0, 0, 0, 0, time.UTC)

	entities := store.Entities{Organizations: []string{"NVIDIA", "TSMC"}, Places: []string{"Taiwan"}}
	clusterA := seedEnrichedArticle(t, db, "a1", day1, store.CategorySemiconductor, entities, []string{"chip", "export"}, -30)
	require.NoError(t, db.SaveClusters([]store.Cluster{clusterA}))

	engine := New(db, zerolog.Nop())
	clusterB := seedEnrichedArticle(t, db, "b1", day3, store.CategorySemiconductor,
		store.Entities{Organizations: []string{"NVIDIA", "TSMC"}, Places: []string{"China"}},
		[]string{"chip", "export", "sanctions"}, -60)
	clusterB.ID = "cluster-b1"

	threads, err := engine.Run("2026-07-03", []store.Cluster{clusterB})
	require.NoError(t, err)
	require.Len(t, threads, 1)

	thread := threads[0]
	assert.Equal(t, "2026-07-01", thread.FirstSeen)
	assert.Equal(t, "2026-07-03", thread.LastSeen)
	assert.Equal(t, 2, thread.DurationDays)
	assert.Equal(t, store.EscalationRising, thread.Escalation)
}

func TestResolveStaleThreadsTransitionsAfterFiveDays(t *testing.T) {
	db := newTestStore(t)
	require.NoError(t, db.SaveNarrativeThreads([]store.NarrativeThread{{
		ID: "t1", Title: "old story", FirstSeen: "2026-06-01", LastSeen: "2026-06-01",
		ClusterIDs: []string{"c1"}, SentimentArc: []float64{-20}, Status: store.ThreadActive,
	}}))

	engine := New(db, zerolog.Nop())
	n, err := engine.ResolveStaleThreads("2026-06-10")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	resolved := store.ThreadResolved
	threads, err := db.GetNarrativeThreads(3650, &resolved)
	require.NoError(t, err)
	require.Len(t, threads, 1)
}
