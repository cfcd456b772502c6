package cache

import (
	"strings"
	"time"

	"github.com/aristath/sentinel/internal/store"
)

const sentimentCacheCapacity = 8192
const sentimentCacheTTL = 7 * 24 * time.Hour

// SentimentCache is the in-memory, bounded, 7-day-TTL cache keyed by
// normalized article text.
type SentimentCache struct {
	lru *boundedLRU
}

// NewSentimentCache creates an empty sentiment cache.
func NewSentimentCache() *SentimentCache {
	return &SentimentCache{lru: newBoundedLRU(sentimentCacheCapacity, sentimentCacheTTL)}
}

// NormalizeText lower-cases and trims text, the canonical cache-key
// projection used both for lookups and the sentiment scorer itself.
func NormalizeText(text string) string {
	return strings.TrimSpace(strings.ToLower(text))
}

// Get returns the cached sentiment for normalized text, if present.
func (c *SentimentCache) Get(text string) (store.Sentiment, bool) {
	v, ok := c.lru.get(NormalizeText(text))
	if !ok {
		return store.Sentiment{}, false
	}
	return v.(store.Sentiment), true
}

// Put stores a sentiment result keyed by normalized text.
func (c *SentimentCache) Put(text string, s store.Sentiment) {
	c.lru.put(NormalizeText(text), s)
}

// Prune evicts expired entries and returns the count removed.
func (c *SentimentCache) Prune() int {
	return c.lru.prune()
}
