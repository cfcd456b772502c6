package store

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Hash16 returns the first 16 hex characters of the SHA-256 digest of s.
// Used for article ids (derived from URL) and cache keys (derived from a
// sorted-key serialization of the cache input). Collision risk is accepted
// at this cardinality per spec.
func Hash16(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:16]
}

// ArticleID derives the stable raw-article id from its URL.
func ArticleID(url string) string {
	return Hash16(url)
}

// SortedKeyHash hashes a deterministic sorted-key serialization of a string
// slice, used by the cluster cache (sorted article-id list) and similar
// content-addressed inputs.
func SortedKeyHash(keys []string) string {
	cp := make([]string, len(keys))
	copy(cp, keys)
	sort.Strings(cp)
	return Hash16(strings.Join(cp, "\x1f"))
}
