package store

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Path: "file::memory:?cache=shared&mode=memory"}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
	require.NoError(t, s.Migrate())
}

func TestSaveRawArticlesUpsertsByURL(t *testing.T) {
	s := newTestStore(t)
	url := "https://example.com/nvidia-earnings"
	id := ArticleID(url)

	err := s.SaveRawArticles([]RawArticle{{
		ID: id, Title: "NVIDIA beats earnings estimates", URL: url, Source: "Reuters",
		PublishedAt: time.Now(), Category: CategoryAIComputeInfra, Provider: "newsapi",
	}})
	require.NoError(t, err)

	// Second write with same URL, different title: heals via upsert.
	err = s.SaveRawArticles([]RawArticle{{
		ID: id, Title: "NVIDIA beats earnings estimates (corrected)", URL: url, Source: "Reuters",
		PublishedAt: time.Now(), Category: CategoryAIComputeInfra, Provider: "newsapi",
	}})
	require.NoError(t, err)

	rows, err := s.conn.Query(`SELECT title FROM raw_articles WHERE url = ?`, url)
	require.NoError(t, err)
	defer rows.Close()
	var count int
	for rows.Next() {
		count++
		var title string
		require.NoError(t, rows.Scan(&title))
		assert.Equal(t, "NVIDIA beats earnings estimates (corrected)", title)
	}
	assert.Equal(t, 1, count, "url must remain unique in the raw table")
}

func TestGetUnenrichedArticles(t *testing.T) {
	s := newTestStore(t)
	url := "https://example.com/amd-shortage"
	id := ArticleID(url)
	require.NoError(t, s.SaveRawArticles([]RawArticle{{
		ID: id, Title: "AMD warns of GPU shortage", URL: url, PublishedAt: time.Now(), Category: CategoryAIComputeInfra,
	}}))

	unenriched, err := s.GetUnenrichedArticles(10)
	require.NoError(t, err)
	require.Len(t, unenriched, 1)
	assert.Equal(t, id, unenriched[0].ID)

	require.NoError(t, s.SaveEnrichedArticles([]EnrichedArticle{{
		ID: id,
		Sentiment: Sentiment{Score: -0.4, NormalizedScore: -40, Confidence: 0.6, Label: SentimentNegative, Method: SentimentLexicon},
		ImpactScore: 55,
	}}))

	unenriched, err = s.GetUnenrichedArticles(10)
	require.NoError(t, err)
	assert.Empty(t, unenriched)
}

func TestClusterAggregatesRoundTrip(t *testing.T) {
	s := newTestStore(t)
	today := time.Now().Format("2006-01-02")

	ids := make([]string, 0, 3)
	for i, title := range []string{"A", "B", "C"} {
		url := "https://example.com/" + title
		id := ArticleID(url)
		ids = append(ids, id)
		require.NoError(t, s.SaveRawArticles([]RawArticle{{ID: id, Title: title, URL: url, PublishedAt: time.Now(), Category: CategorySemiconductor}}))
		require.NoError(t, s.SaveEnrichedArticles([]EnrichedArticle{{ID: id, Sentiment: Sentiment{NormalizedScore: -10 * (i + 1)}, ImpactScore: 10}}))
	}

	c := Cluster{
		ID: "cluster-1", Date: today, Topic: "Trends in Chips", ArticleCount: 3,
		AggregateSentiment: -20, AggregateImpact: 10, Categories: []Category{CategorySemiconductor},
		DateRange: DateRange{Earliest: time.Now(), Latest: time.Now()}, MemberIDs: ids,
	}
	require.NoError(t, s.SaveClusters([]Cluster{c}))

	fetched, err := s.GetClustersByDate(today)
	require.NoError(t, err)
	require.Len(t, fetched, 1)
	assert.Equal(t, 3, fetched[0].ArticleCount)

	members, err := s.GetClusterMembers("cluster-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, ids, members)
}

func TestCacheEntryExpiry(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.PutCacheEntry("briefing", "hash1", `{"x":1}`, time.Now().Add(-time.Second)))
	_, ok, err := s.GetCacheEntry("briefing", "hash1")
	require.NoError(t, err)
	assert.False(t, ok, "expired entry must not be returned")

	require.NoError(t, s.PutCacheEntry("briefing", "hash2", `{"x":2}`, time.Now().Add(time.Hour)))
	payload, ok, err := s.GetCacheEntry("briefing", "hash2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"x":2}`, payload)
}
