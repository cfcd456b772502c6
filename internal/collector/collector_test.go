package collector

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel/internal/providers"
	"github.com/aristath/sentinel/internal/store"
)

type fakeProvider struct {
	name      string
	available bool
	articles  []store.RawArticle
	err       error
}

func (f *fakeProvider) Name() string      { return f.name }
func (f *fakeProvider) IsAvailable() bool { return f.available }
func (f *fakeProvider) RateLimitStatus() providers.RateLimitStatus {
	return providers.RateLimitStatus{}
}
func (f *fakeProvider) FetchArticles(ctx context.Context, category store.Category) ([]store.RawArticle, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.articles, nil
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.Open(store.Config{Path: "file::memory:?cache=shared&mode=memory"}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestCollectorDedupesAcrossProvidersFirstWins(t *testing.T) {
	db := newTestStore(t)

	shared := store.RawArticle{URL: "https://example.com/a", Title: "Same story from two sources today", Source: "first"}
	first := &fakeProvider{name: "newsapi", available: true, articles: []store.RawArticle{shared}}
	second := &fakeProvider{name: "rss", available: true, articles: []store.RawArticle{
		{URL: "https://example.com/a", Title: "Same story, different wording entirely", Source: "second"},
		{URL: "https://example.com/b", Title: "A fully distinct second headline today", Source: "second"},
	}}

	c := New(db, []providers.Provider{first, second}, zerolog.Nop())
	result, err := c.Run(context.Background(), []store.Category{store.CategoryGeopolitics})
	require.NoError(t, err)

	require.Len(t, result.Articles, 2)
	assert.Equal(t, "https://example.com/a", result.Articles[0].URL)

	require.Len(t, result.ProviderCounts, 2)
	assert.Equal(t, 1, result.ProviderCounts[1].Deduplicated)
}

func TestCollectorSkipsUnavailableProviders(t *testing.T) {
	db := newTestStore(t)
	unavailable := &fakeProvider{name: "newsapi", available: false}
	c := New(db, []providers.Provider{unavailable}, zerolog.Nop())

	result, err := c.Run(context.Background(), []store.Category{store.CategoryGeopolitics})
	require.NoError(t, err)
	assert.Empty(t, result.Articles)
}
