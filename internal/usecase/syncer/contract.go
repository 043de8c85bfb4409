package syncer

import (
	"context"

	"github.com/kailas-cloud/indexsync/internal/batcher"
	"github.com/kailas-cloud/indexsync/internal/domain/batch"
	"github.com/kailas-cloud/indexsync/internal/domain/document"
	"github.com/kailas-cloud/indexsync/internal/domain/field"
)

// SchemaEnsurer makes sure the remote schema exists.
type SchemaEnsurer interface {
	Ensure(ctx context.Context, force bool) error
}

// IndexRepository submits bulk operations and finds documents by type.
type IndexRepository interface {
	Upload(ctx context.Context, docs []document.Document) ([]batch.Result, error)
	Delete(ctx context.Context, ids []string) ([]batch.Result, error)
	FindIDsByType(ctx context.Context, typ string) ([]string, error)
}

// FieldSource supplies field declarations grouped by logical type.
type FieldSource interface {
	Fields(ctx context.Context) (map[string][]field.Descriptor, error)
	Types(ctx context.Context) ([]string, error)
}

// RecordSource opens the record stream of one logical type.
type RecordSource interface {
	Records(ctx context.Context, typ string) (batcher.Source[document.Record], error)
}

// FailureReporter records per-item failures and fatal aborts.
type FailureReporter interface {
	Report(ctx context.Context, op, typ string, results []batch.Result) int
	Fatal(ctx context.Context, op, typ string, err error)
}

// Retrier runs a whole-call submission under a retry policy.
type Retrier interface {
	Do(ctx context.Context, op string, fn func(ctx context.Context) error) error
}
