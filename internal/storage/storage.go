// Package storage provides the durable key-value persistence used by the
// local store and the snapshot cache: a handful of JSON blobs under a
// namespace, the server-side equivalent of browser local storage.
package storage

// Store is a namespaced durable key-value store for JSON blobs.
//
// Implementations must tolerate concurrent use from a single process. A
// missing key is not an error: Get returns ok=false.
type Store interface {
	// Put durably writes the blob for key, replacing any previous value.
	Put(key string, data []byte) error

	// Get returns the blob for key, or ok=false when it has never been
	// written.
	Get(key string) (data []byte, ok bool, err error)

	// Delete removes the blob for key. Deleting an absent key is a no-op.
	Delete(key string) error

	// Close releases underlying resources. The store must not be used
	// afterwards.
	Close() error
}
