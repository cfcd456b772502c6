package store

import (
	"database/sql"
	"fmt"
	"time"
)

// PutCacheEntry persists a cache row for the cluster/briefing cache
// families (the sentiment cache stays in-memory only).
func (s *Store) PutCacheEntry(family, keyHash, payload string, expiresAt time.Time) error {
	_, err := s.conn.Exec(`
		INSERT INTO cache_entries (family, key_hash, payload, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(family, key_hash) DO UPDATE SET payload = excluded.payload, expires_at = excluded.expires_at
	`, family, keyHash, payload, expiresAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("put cache entry: %w", err)
	}
	return nil
}

// GetCacheEntry returns the payload for (family, keyHash) if present and not
// expired. ok is false on miss or expiry.
func (s *Store) GetCacheEntry(family, keyHash string) (payload string, ok bool, err error) {
	row := s.conn.QueryRow(`SELECT payload, expires_at FROM cache_entries WHERE family = ? AND key_hash = ?`, family, keyHash)
	var expiresAt string
	if scanErr := row.Scan(&payload, &expiresAt); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get cache entry: %w", scanErr)
	}
	t, parseErr := time.Parse(time.RFC3339, expiresAt)
	if parseErr != nil || time.Now().After(t) {
		return "", false, nil
	}
	return payload, true, nil
}

// PruneExpiredCacheEntries deletes every cache row whose TTL has passed.
func (s *Store) PruneExpiredCacheEntries() (int64, error) {
	res, err := s.conn.Exec(`DELETE FROM cache_entries WHERE expires_at < ?`, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("prune cache entries: %w", err)
	}
	return res.RowsAffected()
}
