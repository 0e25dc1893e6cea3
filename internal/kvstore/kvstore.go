// Package kvstore provides the durable key-value primitive the rewards ledger
// persists its snapshot through.
//
// Three implementations of the Store interface are provided:
//   - MemoryStore: in-process, for testing and ephemeral runs.
//   - SQLiteStore: single-file database, the default for a local daemon.
//   - PostgresStore: durable, for hosted deployments.
package kvstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no value is stored under the key.
var ErrNotFound = errors.New("key not found")

// Store is a get/set-by-key persistence primitive. Values are opaque bytes.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
}
