package index

import (
	"context"

	"github.com/kailas-cloud/indexsync/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
	dropIndexFn   func(ctx context.Context, name string) error
	indexExistsFn func(ctx context.Context, name string) (bool, error)
	bulkFn        func(ctx context.Context, ops []db.BulkOp) ([]db.BulkResult, error)
	findKeysFn    func(ctx context.Context, q *db.KeyQuery) (*db.KeyPage, error)
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) DropIndex(ctx context.Context, name string) error {
	if m.dropIndexFn != nil {
		return m.dropIndexFn(ctx, name)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func (m *mockStore) Bulk(ctx context.Context, ops []db.BulkOp) ([]db.BulkResult, error) {
	if m.bulkFn != nil {
		return m.bulkFn(ctx, ops)
	}
	out := make([]db.BulkResult, len(ops))
	for i, op := range ops {
		out[i] = db.BulkResult{Key: op.Key, Succeeded: true}
	}
	return out, nil
}

func (m *mockStore) FindKeys(ctx context.Context, q *db.KeyQuery) (*db.KeyPage, error) {
	if m.findKeysFn != nil {
		return m.findKeysFn(ctx, q)
	}
	return &db.KeyPage{}, nil
}

func testKeys() Keys {
	return NewKeys("indexsync:", "content")
}
