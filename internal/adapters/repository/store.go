// Package repository defines the incident store interface and errors.
package repository

import (
	"context"

	"github.com/hedvall/vakthund/internal/domain/model"
)

// Store is the keyed document store the pipeline writes to and the
// dashboard reads from. Implementations must provide upsert-by-key with
// merge, full replace, batch delete, and a timestamp range query with
// descending order and a limit. All mutation is idempotent per key, so
// concurrent writers on disjoint key namespaces need no coordination.
type Store interface {
	// Upsert creates or merges rec under rec.Key. Previously stored
	// incident fields absent from rec survive; qa_integrity, timestamp and
	// the mocked flag are always taken from rec.
	Upsert(ctx context.Context, rec model.StoredIncident) error

	// Replace stores rec under rec.Key, discarding any existing document.
	Replace(ctx context.Context, rec model.StoredIncident) error

	// RecentN returns up to n records ordered by timestamp descending.
	RecentN(ctx context.Context, n int) ([]model.StoredIncident, error)

	// KeysOlderThan returns the keys of all records whose timestamp is
	// strictly below cutoff (epoch milliseconds).
	KeysOlderThan(ctx context.Context, cutoff int64) ([]string, error)

	// DeleteBatch removes the given keys. Missing keys are not an error.
	DeleteBatch(ctx context.Context, keys []string) error

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Close releases the underlying resources.
	Close() error
}
