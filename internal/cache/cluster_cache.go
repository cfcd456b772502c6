package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/aristath/sentinel/internal/store"
)

const clusterCacheFamily = "cluster"
const clusterCacheTTL = 6 * time.Hour

// ClusterCache persists clustering results keyed by the sorted set of
// enriched-article ids that fed them, with a 6h TTL. A cache hit lets the
// daily run skip re-embedding and re-clustering a set of articles it has
// already grouped.
type ClusterCache struct {
	db *store.Store
}

// NewClusterCache wraps a Store with the cluster-cache family namespace.
func NewClusterCache(db *store.Store) *ClusterCache {
	return &ClusterCache{db: db}
}

// Get returns the cached clusters for a given article-id set, if present and
// unexpired.
func (c *ClusterCache) Get(articleIDs []string) ([]store.Cluster, bool, error) {
	hash := store.SortedKeyHash(articleIDs)
	payload, ok, err := c.db.GetCacheEntry(clusterCacheFamily, hash)
	if err != nil {
		return nil, false, fmt.Errorf("cluster cache get: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	var clusters []store.Cluster
	if err := json.Unmarshal([]byte(payload), &clusters); err != nil {
		return nil, false, fmt.Errorf("cluster cache decode: %w", err)
	}
	return clusters, true, nil
}

// Put stores clustering output keyed by the same article-id set used for Get.
func (c *ClusterCache) Put(articleIDs []string, clusters []store.Cluster) error {
	payload, err := json.Marshal(clusters)
	if err != nil {
		return fmt.Errorf("cluster cache encode: %w", err)
	}
	hash := store.SortedKeyHash(articleIDs)
	if err := c.db.PutCacheEntry(clusterCacheFamily, hash, string(payload), time.Now().Add(clusterCacheTTL)); err != nil {
		return fmt.Errorf("cluster cache put: %w", err)
	}
	return nil
}
