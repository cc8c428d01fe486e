package cache

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/leosinemaxx/jatour-engine/internal/clock"
)

// SQLite is a Store backed by the cache database. Entries survive restarts,
// which keeps cooldown windows intact across deploys.
type SQLite struct {
	db    *sql.DB
	clock clock.Clock
}

// NewSQLite creates a sqlite-backed store. The cache table must exist
// (created by the database schema bootstrap).
func NewSQLite(db *sql.DB, clk clock.Clock) *SQLite {
	return &SQLite{db: db, clock: clk}
}

// Get unmarshals the value for key into dest.
func (s *SQLite) Get(key string, dest interface{}) (bool, error) {
	var value []byte
	var expiresAt int64
	err := s.db.QueryRow("SELECT value, expires_at FROM cache WHERE key = ?", key).Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}

	if expiresAt > 0 && s.clock.Now().Unix() >= expiresAt {
		_ = s.Delete(key)
		return false, nil
	}

	if err := msgpack.Unmarshal(value, dest); err != nil {
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return true, nil
}

// Set stores value under key for ttl.
func (s *SQLite) Set(key string, value interface{}, ttl time.Duration) error {
	data, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}

	var expiresAt int64
	if ttl > 0 {
		expiresAt = s.clock.Now().Add(ttl).Unix()
	}

	_, err = s.db.Exec(`
		INSERT INTO cache (key, value, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at
	`, key, data, expiresAt)
	if err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Delete removes a cache entry.
func (s *SQLite) Delete(key string) error {
	_, err := s.db.Exec("DELETE FROM cache WHERE key = ?", key)
	return err
}

// DeleteByPrefix removes all cache entries matching a prefix.
func (s *SQLite) DeleteByPrefix(prefix string) error {
	_, err := s.db.Exec("DELETE FROM cache WHERE key LIKE ?", prefix+"%")
	return err
}

// PurgeExpired removes all expired entries. Called from daily maintenance.
func (s *SQLite) PurgeExpired() (int64, error) {
	res, err := s.db.Exec("DELETE FROM cache WHERE expires_at > 0 AND expires_at <= ?", s.clock.Now().Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
