package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/indexsync/internal/domain/batch"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidSchema signals an invalid schema definition.
	ErrInvalidSchema = errors.New("invalid schema")
	// ErrInvalidValue signals a field value that cannot be encoded for its remote type.
	ErrInvalidValue = errors.New("invalid field value")
	// ErrUnsupportedType signals a semantic field type with no remote equivalent.
	ErrUnsupportedType = errors.New("unsupported field type")
	// ErrSchemaCreation signals that the remote store rejected the index schema.
	ErrSchemaCreation = errors.New("schema creation failed")
	// ErrBatchDelete signals that at least one key failed during resync cleanup.
	ErrBatchDelete = errors.New("batch delete failed")
	// ErrBatchInsertPartial signals that some documents of an insert batch were rejected.
	ErrBatchInsertPartial = errors.New("batch insert partially failed")
)

// UnsupportedTypeError reports a field whose semantic type cannot be mapped.
type UnsupportedTypeError struct {
	Field string
	Type  string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("%s: field %q has type %q", ErrUnsupportedType.Error(), e.Field, e.Type)
}

func (e *UnsupportedTypeError) Unwrap() error { return ErrUnsupportedType }

// SchemaCreationError wraps a remote rejection of FT.CREATE.
type SchemaCreationError struct {
	Index string
	Err   error
}

func (e *SchemaCreationError) Error() string {
	return fmt.Sprintf("%s: index %s: %v", ErrSchemaCreation.Error(), e.Index, e.Err)
}

// Unwrap exposes both the sentinel and the underlying driver error.
func (e *SchemaCreationError) Unwrap() []error { return []error{ErrSchemaCreation, e.Err} }

// BatchDeleteFailure aborts a resync when stale documents could not be removed.
type BatchDeleteFailure struct {
	Type   string
	Failed []batch.Result
}

func (e *BatchDeleteFailure) Error() string {
	return fmt.Sprintf("%s: type %q: %d key(s) not deleted [%s]",
		ErrBatchDelete.Error(), e.Type, len(e.Failed), joinKeys(e.Failed, 5))
}

func (e *BatchDeleteFailure) Unwrap() error { return ErrBatchDelete }

// BatchInsertPartialFailure describes the rejected part of one insert batch.
// It is reported, never returned from a resync.
type BatchInsertPartialFailure struct {
	Type   string
	Failed []batch.Result
}

func (e *BatchInsertPartialFailure) Error() string {
	return fmt.Sprintf("%s: type %q: %d document(s) rejected [%s]",
		ErrBatchInsertPartial.Error(), e.Type, len(e.Failed), joinKeys(e.Failed, 5))
}

func (e *BatchInsertPartialFailure) Unwrap() error { return ErrBatchInsertPartial }

func joinKeys(results []batch.Result, limit int) string {
	keys := make([]string, 0, min(len(results), limit))
	for i, r := range results {
		if i == limit {
			keys = append(keys, "...")
			break
		}
		keys = append(keys, r.Key())
	}
	return strings.Join(keys, ", ")
}
