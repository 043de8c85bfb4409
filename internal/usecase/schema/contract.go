package schema

import (
	"context"

	"github.com/kailas-cloud/indexsync/internal/domain/field"
	domschema "github.com/kailas-cloud/indexsync/internal/domain/schema"
)

// Repository defines the remote index contract.
type Repository interface {
	Exists(ctx context.Context) (bool, error)
	Create(ctx context.Context, s domschema.Schema) error
	Drop(ctx context.Context) error
}

// FieldSource supplies field declarations grouped by logical type.
type FieldSource interface {
	Fields(ctx context.Context) (map[string][]field.Descriptor, error)
}
