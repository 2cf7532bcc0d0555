// Package snapshot remembers what the remote looked like after the last
// successful push. The sync engine diffs current local state against this
// copy to decide which records actually need to travel.
package snapshot

import (
	"encoding/json"
	"fmt"

	"github.com/palliative-rounds/rounds/internal/schema"
	"github.com/palliative-rounds/rounds/internal/storage"
)

// Key is the storage key the snapshot lives under. Versioned so a future
// format change can start clean instead of misreading old payloads.
const Key = "autosync_last_sync_snapshot_v1"

// Cache persists a deep copy of the state as of the last successful push.
type Cache struct {
	backend storage.Store
}

// NewCache returns a cache backed by backend.
func NewCache(backend storage.Store) *Cache {
	return &Cache{backend: backend}
}

// Capture stores a deep copy of st as the new baseline. Call this only after
// a push fully succeeds; a failed push must leave the old baseline in place
// so the failed records stay in the next diff.
func (c *Cache) Capture(st schema.State) error {
	data, err := json.Marshal(st.Clone())
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := c.backend.Put(Key, data); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	return nil
}

// Load returns the stored baseline. A missing or unreadable snapshot comes
// back as an empty state, which makes every local record look new; that is
// the safe direction since pushes are idempotent.
func (c *Cache) Load() schema.State {
	data, ok, err := c.backend.Get(Key)
	if err != nil || !ok {
		return schema.EmptyState()
	}
	var st schema.State
	if err := json.Unmarshal(data, &st); err != nil {
		return schema.EmptyState()
	}
	return schema.NormalizeState(st)
}

// Clear drops the baseline, forcing the next push to treat everything as
// changed.
func (c *Cache) Clear() error {
	return c.backend.Delete(Key)
}
