// Package source defines where records and field declarations come from.
package source

import (
	"context"

	"github.com/kailas-cloud/indexsync/internal/batcher"
	"github.com/kailas-cloud/indexsync/internal/domain/document"
	"github.com/kailas-cloud/indexsync/internal/domain/field"
)

// Source supplies field declarations and records grouped by logical type.
type Source interface {
	// Fields returns the declared fields keyed by logical type.
	Fields(ctx context.Context) (map[string][]field.Descriptor, error)
	// Types returns every known logical type, sorted.
	Types(ctx context.Context) ([]string, error)
	// Records streams the records of typ ordered by id.
	// The returned source may implement io.Closer.
	Records(ctx context.Context, typ string) (batcher.Source[document.Record], error)
	// Record returns a single record. Missing ids yield domain.ErrNotFound.
	Record(ctx context.Context, id string) (document.Record, error)
	Ping(ctx context.Context) error
	Close() error
}
