package clustering

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/sentinel/internal/cache"
	"github.com/aristath/sentinel/internal/store"
)

// Clustering groups today's enriched articles into topic clusters, using
// the persisted cluster cache to skip recomputation on an unchanged input
// set.
type Clustering struct {
	db       *store.Store
	cache    *cache.ClusterCache
	embedder Embedder
	log      zerolog.Logger
}

func New(db *store.Store, clusterCache *cache.ClusterCache, embedder Embedder, log zerolog.Logger) *Clustering {
	return &Clustering{db: db, cache: clusterCache, embedder: embedder, log: log.With().Str("component", "clustering").Logger()}
}

// articleView is the minimal per-article projection clustering needs,
// joining raw and enriched fields.
type articleView struct {
	ID          string
	Text        string
	Source      string
	Category    store.Category
	PublishedAt time.Time
	Sentiment   int
	Impact      float64
}

// Run clusters the given articles (already matched raw+enriched pairs) and
// persists the result, returning clusters ordered by aggregate_impact
// descending.
func (c *Clustering) Run(articles []articleView) ([]store.Cluster, error) {
	if len(articles) == 0 {
		return nil, nil
	}

	ids := make([]string, len(articles))
	for i, a := range articles {
		ids[i] = a.ID
	}

	if cached, ok, err := c.cache.Get(ids); err != nil {
		return nil, fmt.Errorf("cluster cache lookup: %w", err)
	} else if ok {
		c.log.Info().Int("articles", len(articles)).Msg("cluster cache hit")
		return cached, nil
	}

	clusters := c.computeClusters(articles)

	if err := c.db.SaveClusters(clusters); err != nil {
		return nil, fmt.Errorf("save clusters: %w", err)
	}
	if err := c.cache.Put(ids, clusters); err != nil {
		c.log.Warn().Err(err).Msg("failed to persist cluster cache entry")
	}

	c.log.Info().Int("articles", len(articles)).Int("clusters", len(clusters)).Msg("clustering run complete")
	return clusters, nil
}

func (c *Clustering) computeClusters(articles []articleView) []store.Cluster {
	texts := make([]string, len(articles))
	for i, a := range articles {
		texts[i] = a.Text
	}

	groups := coalesceSingletons(greedyCluster(c.embedder.Embed(texts)))
	if len(groups) == 0 {
		// Degenerate semantic pass (e.g. every article was a singleton and
		// fewer than 3 existed): fall back to TF-IDF + k-means so the run
		// still produces usable clusters.
		vectors, _ := tfidfVectorize(texts)
		k := kmeansClusterCount(len(articles))
		assignments := kmeans(vectors, k)
		byCluster := make(map[int][]int)
		for i, cl := range assignments {
			byCluster[cl] = append(byCluster[cl], i)
		}
		groups = groups[:0]
		for _, idxs := range byCluster {
			groups = append(groups, idxs)
		}
	}

	clusters := make([]store.Cluster, 0, len(groups))
	for _, group := range groups {
		clusters = append(clusters, c.buildCluster(articles, group))
	}

	sort.SliceStable(clusters, func(i, j int) bool { return clusters[i].AggregateImpact > clusters[j].AggregateImpact })
	return clusters
}

func (c *Clustering) buildCluster(articles []articleView, idxs []int) store.Cluster {
	memberIDs := make([]string, len(idxs))
	texts := make([]string, len(idxs))
	sources := make([]string, len(idxs))
	categorySet := make(map[store.Category]bool)

	var sentimentSum, impactSum float64
	earliest, latest := articles[idxs[0]].PublishedAt, articles[idxs[0]].PublishedAt

	for i, idx := range idxs {
		a := articles[idx]
		memberIDs[i] = a.ID
		texts[i] = a.Text
		sources[i] = a.Source
		categorySet[a.Category] = true
		sentimentSum += float64(a.Sentiment)
		impactSum += a.Impact
		if a.PublishedAt.Before(earliest) {
			earliest = a.PublishedAt
		}
		if a.PublishedAt.After(latest) {
			latest = a.PublishedAt
		}
	}

	categories := make([]store.Category, 0, len(categorySet))
	for cat := range categorySet {
		categories = append(categories, cat)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })

	keywords := ExtractKeywords(texts)
	topic := Topic(keywords, articles[idxs[0]].Text)

	return store.Cluster{
		ID:                 store.SortedKeyHash(memberIDs),
		Date:               latest.Format("2006-01-02"),
		Topic:              topic,
		Keywords:           keywords,
		ArticleCount:       len(idxs),
		AggregateSentiment: sentimentSum / float64(len(idxs)),
		AggregateImpact:    impactSum / float64(len(idxs)),
		Categories:         categories,
		DateRange:          store.DateRange{Earliest: earliest, Latest: latest},
		MemberIDs:          memberIDs,
	}
}
