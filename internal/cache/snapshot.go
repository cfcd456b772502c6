package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/sentinel/internal/store"
)

const sentimentSnapshotFile = "sentiment_cache.msgpack"

// sentimentSnapshotEntry is the on-disk shape of one sentiment-cache row.
// Kept distinct from lruEntry so the wire format doesn't depend on the
// cache's internal interface{} value field.
type sentimentSnapshotEntry struct {
	Key       string          `msgpack:"key"`
	Value     store.Sentiment `msgpack:"value"`
	ExpiresAt time.Time       `msgpack:"expires_at"`
}

// SaveSnapshot msgpack-encodes the in-memory sentiment cache to a file under
// dir, so a process restart doesn't cold-start every previously scored
// headline. The persisted cluster/briefing caches need no equivalent since
// they already live in the database.
func (c *SentimentCache) SaveSnapshot(dir string) error {
	entries := c.lru.snapshot()
	out := make([]sentimentSnapshotEntry, 0, len(entries))
	for _, e := range entries {
		s, ok := e.value.(store.Sentiment)
		if !ok {
			continue
		}
		out = append(out, sentimentSnapshotEntry{Key: e.key, Value: s, ExpiresAt: e.expiresAt})
	}

	payload, err := msgpack.Marshal(out)
	if err != nil {
		return fmt.Errorf("encode sentiment snapshot: %w", err)
	}
	path := filepath.Join(dir, sentimentSnapshotFile)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write sentiment snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot restores a previously saved sentiment cache. A missing file
// is not an error: the cache simply starts cold.
func (c *SentimentCache) LoadSnapshot(dir string) error {
	path := filepath.Join(dir, sentimentSnapshotFile)
	payload, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read sentiment snapshot: %w", err)
	}

	var in []sentimentSnapshotEntry
	if err := msgpack.Unmarshal(payload, &in); err != nil {
		return fmt.Errorf("decode sentiment snapshot: %w", err)
	}

	entries := make([]lruEntry, 0, len(in))
	for _, e := range in {
		entries = append(entries, lruEntry{key: e.Key, value: e.Value, expiresAt: e.ExpiresAt})
	}
	c.lru.load(entries)
	return nil
}
