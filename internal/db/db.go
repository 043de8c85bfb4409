// Package db defines the remote index store facade and the driver-neutral
// index, bulk and key-lookup types.
package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
type Store interface {
	Pinger
	IndexManager
	BulkWriter
	KeyFinder
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// IndexManager provides FT index lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// BulkWriter submits a batch of upload/delete operations in one round trip.
// A non-nil error means the call as a whole failed; per-op outcomes are in the results,
// which are returned in request order.
type BulkWriter interface {
	Bulk(ctx context.Context, ops []BulkOp) ([]BulkResult, error)
}

// KeyFinder lists document keys whose TAG field holds a given value.
type KeyFinder interface {
	FindKeys(ctx context.Context, q *KeyQuery) (*KeyPage, error)
}
