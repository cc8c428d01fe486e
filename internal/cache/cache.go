// Package cache provides TTL key-value storage used for burn-rate report
// caching, orchestration result caching and alert cooldown tracking.
package cache

import "time"

// Store is a key-value store with per-entry expiry. Implementations must be
// safe for concurrent use; values are serialized via msgpack so stored types
// need exported fields.
type Store interface {
	// Get unmarshals the value for key into dest. Returns false when the key
	// is missing or expired.
	Get(key string, dest interface{}) (bool, error)

	// Set stores value under key for ttl. A non-positive ttl stores the
	// entry without expiry.
	Set(key string, value interface{}, ttl time.Duration) error

	// Delete removes a single entry. Deleting a missing key is not an error.
	Delete(key string) error

	// DeleteByPrefix removes all entries whose key starts with prefix.
	// Used for explicit invalidation when new expenses arrive.
	DeleteByPrefix(prefix string) error
}
