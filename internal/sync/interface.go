// Package sync moves roster state between the local store and a remote
// backend. It merges record by record under a last-writer-wins rule and
// pushes only what changed since the previous successful push.
package sync

import (
	"context"
	"encoding/json"

	"github.com/palliative-rounds/rounds/internal/schema"
)

// RemoteStore is the transport-agnostic contract for a remote backend.
//
// Implementations exist for HTTP, websocket, and in-memory (tests and the
// loopback server). The engine never sees which one it has; all policy
// decisions (merging, diffing, retries) live above this interface.
//
// All methods take a context and must honor its cancellation. Callers wrap
// each call in a deadline, so slow remotes fail rather than wedge the
// engine's single in-flight slot.
type RemoteStore interface {
	// List returns every record in the collection as raw JSON documents.
	//
	// Records arrive in whatever shape the remote stored them; callers
	// decode and normalize. A collection that does not exist yet comes
	// back as an empty slice, not an error.
	//
	// Example:
	//   docs, err := remote.List(ctx, schema.ColPatients)
	List(ctx context.Context, col schema.Collection) ([]json.RawMessage, error)

	// Save upserts one record into the collection and returns the id the
	// remote stored it under. Records carry their own ids; the remote
	// must keep them so both sides agree on identity.
	//
	// Save is idempotent: re-saving an unchanged record is harmless.
	Save(ctx context.Context, col schema.Collection, record any) (string, error)

	// Remove deletes the record with the given id from the collection.
	//
	// Returns nil if the record does not exist (idempotent).
	Remove(ctx context.Context, col schema.Collection, id string) error
}
