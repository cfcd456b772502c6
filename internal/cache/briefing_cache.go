package cache

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/aristath/sentinel/internal/store"
)

const briefingCacheFamily = "briefing"
const briefingCacheTTL = 24 * time.Hour

// clusterProjection is the reduced view of a cluster hashed into the
// briefing cache key. It deliberately excludes volatile per-member detail
// (member ids, exact keyword ordering) so that two clustering runs that
// land on the same story still produce the same LLM input hash.
type clusterProjection struct {
	Topic              string   `json:"topic"`
	ArticleCount       int      `json:"article_count"`
	AggregateSentiment float64  `json:"aggregate_sentiment"`
	TopKeywords        []string `json:"top_keywords"`
}

// BriefingCache is the idempotence gate in front of the LLM synthesis call:
// a persisted, 24h-TTL cache keyed on a hash of today's cluster projection,
// exposing CheckBeforeLLMCall(clusters) -> {should_call, cached?, input_hash}.
type BriefingCache struct {
	db *store.Store
}

// NewBriefingCache wraps a Store with the briefing-cache family namespace.
func NewBriefingCache(db *store.Store) *BriefingCache {
	return &BriefingCache{db: db}
}

// ProjectClusters reduces today's clusters to the hashed-input shape. Exported
// so the synthesis stage can log or inspect the exact projection that was hashed.
func ProjectClusters(clusters []store.Cluster) []clusterProjection {
	projections := make([]clusterProjection, 0, len(clusters))
	for _, c := range clusters {
		keywords := append([]string(nil), c.Keywords...)
		if len(keywords) > 5 {
			keywords = keywords[:5]
		}
		sort.Strings(keywords)
		projections = append(projections, clusterProjection{
			Topic:              c.Topic,
			ArticleCount:       c.ArticleCount,
			AggregateSentiment: c.AggregateSentiment,
			TopKeywords:        keywords,
		})
	}
	sort.Slice(projections, func(i, j int) bool { return projections[i].Topic < projections[j].Topic })
	return projections
}

// InputHash returns the content-addressed hash of today's cluster projection.
// This is the value stored as DailyBriefing.CacheHash.
func InputHash(clusters []store.Cluster) (string, error) {
	payload, err := json.Marshal(ProjectClusters(clusters))
	if err != nil {
		return "", fmt.Errorf("briefing input encode: %w", err)
	}
	return store.Hash16(string(payload)), nil
}

// GateDecision reports whether the synthesis stage should call the LLM.
type GateDecision struct {
	ShouldCall bool
	Cached     *store.DailyBriefing
	InputHash  string
}

// CheckBeforeLLMCall computes the input hash for today's clusters and looks
// it up. A hit means an identical cluster set already produced a briefing
// within the TTL window, so the caller should reuse it instead of spending
// an LLM call.
func (c *BriefingCache) CheckBeforeLLMCall(clusters []store.Cluster) (GateDecision, error) {
	hash, err := InputHash(clusters)
	if err != nil {
		return GateDecision{}, err
	}
	payload, ok, err := c.db.GetCacheEntry(briefingCacheFamily, hash)
	if err != nil {
		return GateDecision{}, fmt.Errorf("briefing cache get: %w", err)
	}
	if !ok {
		return GateDecision{ShouldCall: true, InputHash: hash}, nil
	}
	var briefing store.DailyBriefing
	if err := json.Unmarshal([]byte(payload), &briefing); err != nil {
		return GateDecision{}, fmt.Errorf("briefing cache decode: %w", err)
	}
	return GateDecision{ShouldCall: false, Cached: &briefing, InputHash: hash}, nil
}

// Put stores a freshly synthesized briefing under its input hash.
func (c *BriefingCache) Put(inputHash string, briefing store.DailyBriefing) error {
	payload, err := json.Marshal(briefing)
	if err != nil {
		return fmt.Errorf("briefing cache encode: %w", err)
	}
	if err := c.db.PutCacheEntry(briefingCacheFamily, inputHash, string(payload), time.Now().Add(briefingCacheTTL)); err != nil {
		return fmt.Errorf("briefing cache put: %w", err)
	}
	return nil
}
