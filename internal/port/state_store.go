package port

import (
	"context"
	"errors"
)

var ErrOptimisticLock = errors.New("optimistic lock conflict")

// Snapshot is the raw value of a state entry together with its version.
// A missing entry has nil Data and Version 0.
type Snapshot struct {
	Data    []byte
	Version int64
}

type StateStore interface {
	// Load reads the named entry
	Load(ctx context.Context, key string) (Snapshot, error)

	// Store writes the entry if its version still equals expectedVersion, returns ErrOptimisticLock otherwise
	Store(ctx context.Context, key string, data []byte, expectedVersion int64) error

	// Ping checks that the backend is reachable
	Ping(ctx context.Context) error
}
