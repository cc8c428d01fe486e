package cache

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leosinemaxx/jatour-engine/internal/clock"

	_ "modernc.org/sqlite"
)

type payload struct {
	Name  string
	Count int
}

func newFakeClock() *clock.Fake {
	return clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
}

func TestMemory_SetGetRoundTrip(t *testing.T) {
	store := NewMemory(newFakeClock())

	require.NoError(t, store.Set("k", payload{Name: "deals", Count: 3}, time.Minute))

	var got payload
	found, err := store.Get("k", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, payload{Name: "deals", Count: 3}, got)
}

func TestMemory_MissingKey(t *testing.T) {
	store := NewMemory(newFakeClock())

	var got payload
	found, err := store.Get("absent", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemory_ExpiryUsesInjectedClock(t *testing.T) {
	clk := newFakeClock()
	store := NewMemory(clk)

	require.NoError(t, store.Set("k", payload{Count: 1}, 5*time.Minute))

	clk.Advance(4 * time.Minute)
	var got payload
	found, err := store.Get("k", &got)
	require.NoError(t, err)
	assert.True(t, found, "not yet expired")

	clk.Advance(2 * time.Minute)
	found, err = store.Get("k", &got)
	require.NoError(t, err)
	assert.False(t, found, "expired after TTL")
}

func TestMemory_ZeroTTLNeverExpires(t *testing.T) {
	clk := newFakeClock()
	store := NewMemory(clk)

	require.NoError(t, store.Set("k", payload{Count: 1}, 0))
	clk.Advance(24 * 365 * time.Hour)

	var got payload
	found, err := store.Get("k", &got)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestMemory_DeleteByPrefix(t *testing.T) {
	store := NewMemory(newFakeClock())

	require.NoError(t, store.Set("orchestration:u1:a", 1, 0))
	require.NoError(t, store.Set("orchestration:u1:b", 2, 0))
	require.NoError(t, store.Set("orchestration:u2:a", 3, 0))

	require.NoError(t, store.DeleteByPrefix("orchestration:u1:"))

	var n int
	found, _ := store.Get("orchestration:u1:a", &n)
	assert.False(t, found)
	found, _ = store.Get("orchestration:u1:b", &n)
	assert.False(t, found)
	found, _ = store.Get("orchestration:u2:a", &n)
	assert.True(t, found, "other user's entries untouched")
}

func setupCacheDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE cache (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			expires_at INTEGER NOT NULL DEFAULT 0
		);
	`)
	require.NoError(t, err)
	return db
}

func TestSQLite_SetGetAndOverwrite(t *testing.T) {
	store := NewSQLite(setupCacheDB(t), newFakeClock())

	require.NoError(t, store.Set("k", payload{Name: "first"}, time.Hour))
	require.NoError(t, store.Set("k", payload{Name: "second"}, time.Hour))

	var got payload
	found, err := store.Get("k", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "second", got.Name)
}

func TestSQLite_ExpiryAndPurge(t *testing.T) {
	clk := newFakeClock()
	store := NewSQLite(setupCacheDB(t), clk)

	require.NoError(t, store.Set("short", payload{Count: 1}, time.Minute))
	require.NoError(t, store.Set("long", payload{Count: 2}, time.Hour))
	require.NoError(t, store.Set("forever", payload{Count: 3}, 0))

	clk.Advance(10 * time.Minute)

	var got payload
	found, err := store.Get("short", &got)
	require.NoError(t, err)
	assert.False(t, found)

	purged, err := store.PurgeExpired()
	require.NoError(t, err)
	// "short" was already lazily evicted by the Get above.
	assert.Equal(t, int64(0), purged)

	clk.Advance(2 * time.Hour)
	purged, err = store.PurgeExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged, "only the expired hour-long entry")

	found, err = store.Get("forever", &got)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestSQLite_DeleteByPrefix(t *testing.T) {
	store := NewSQLite(setupCacheDB(t), newFakeClock())

	require.NoError(t, store.Set("burnrate:u1:it-1", 1, 0))
	require.NoError(t, store.Set("burnrate:u1:it-2", 2, 0))
	require.NoError(t, store.Set("burnrate:u2:it-1", 3, 0))

	require.NoError(t, store.DeleteByPrefix("burnrate:u1:"))

	var n int
	found, _ := store.Get("burnrate:u1:it-1", &n)
	assert.False(t, found)
	found, _ = store.Get("burnrate:u2:it-1", &n)
	assert.True(t, found)
}
