// Package index maps the remote schema and documents onto the FT store.
package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/indexsync/internal/db"
	"github.com/kailas-cloud/indexsync/internal/domain/batch"
	"github.com/kailas-cloud/indexsync/internal/domain/document"
	"github.com/kailas-cloud/indexsync/internal/domain/schema"
)

// DefaultPageSize is the FT.SEARCH page used when collecting keys of a type.
const DefaultPageSize = 1000

// store is the consumer interface for the index repository (ISP).
type store interface {
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	Bulk(ctx context.Context, ops []db.BulkOp) ([]db.BulkResult, error)
	FindKeys(ctx context.Context, q *db.KeyQuery) (*db.KeyPage, error)
}

// Repo implements the schema and document repositories over one FT index.
type Repo struct {
	store           store
	keys            Keys
	defaultAnalyzer string
	pageSize        int
}

// New creates an index repository.
func New(s store, keys Keys, defaultAnalyzer string) *Repo {
	return &Repo{store: s, keys: keys, defaultAnalyzer: defaultAnalyzer, pageSize: DefaultPageSize}
}

// WithPageSize configures the key lookup page size.
func (r *Repo) WithPageSize(n int) *Repo {
	if n > 0 {
		r.pageSize = n
	}
	return r
}

// Name returns the FT index name.
func (r *Repo) Name() string { return r.keys.IndexName() }

// Exists reports whether the FT index exists.
func (r *Repo) Exists(ctx context.Context) (bool, error) {
	ok, err := r.store.IndexExists(ctx, r.keys.IndexName())
	if err != nil {
		return false, fmt.Errorf("index exists %s: %w", r.keys.IndexName(), err)
	}
	return ok, nil
}

// Create creates the FT index for s. An index created concurrently by
// another process counts as success.
func (r *Repo) Create(ctx context.Context, s schema.Schema) error {
	def, err := BuildDefinition(r.keys, s, r.defaultAnalyzer)
	if err != nil {
		return err
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w", def.Name, err)
	}
	return nil
}

// Drop removes the FT index definition. Documents are kept.
func (r *Repo) Drop(ctx context.Context) error {
	if err := r.store.DropIndex(ctx, r.keys.IndexName()); err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil
		}
		return fmt.Errorf("drop index %s: %w", r.keys.IndexName(), err)
	}
	return nil
}

// Upload replaces docs in one bulk call. Results are keyed by document id.
func (r *Repo) Upload(ctx context.Context, docs []document.Document) ([]batch.Result, error) {
	ops := make([]db.BulkOp, len(docs))
	for i, d := range docs {
		ops[i] = db.Upload(r.keys.Key(d.Key()), d.Fields())
	}
	return r.submit(ctx, ops)
}

// Delete removes documents by id in one bulk call. Deleting a missing id succeeds.
func (r *Repo) Delete(ctx context.Context, ids []string) ([]batch.Result, error) {
	ops := make([]db.BulkOp, len(ids))
	for i, id := range ids {
		ops[i] = db.Delete(r.keys.Key(id))
	}
	return r.submit(ctx, ops)
}

func (r *Repo) submit(ctx context.Context, ops []db.BulkOp) ([]batch.Result, error) {
	if len(ops) == 0 {
		return nil, nil
	}
	res, err := r.store.Bulk(ctx, ops)
	if err != nil {
		return nil, fmt.Errorf("bulk %d ops: %w", len(ops), err)
	}
	if len(res) != len(ops) {
		return nil, fmt.Errorf("bulk returned %d results for %d ops", len(res), len(ops))
	}

	out := make([]batch.Result, len(res))
	for i, br := range res {
		id, _ := r.keys.ID(ops[i].Key)
		if br.Succeeded {
			out[i] = batch.NewOK(id)
			continue
		}
		out[i] = batch.NewError(id, br.Err)
	}
	return out, nil
}

// FindIDsByType collects the ids of all documents tagged with typ, page by page.
// A missing index has no documents.
func (r *Repo) FindIDsByType(ctx context.Context, typ string) ([]string, error) {
	if err := document.ValidateType(typ); err != nil {
		return nil, err
	}

	var ids []string
	q := &db.KeyQuery{
		Index:    r.keys.IndexName(),
		Prefix:   r.keys.DocPrefix(),
		TagField: schema.TypeFieldName,
		TagValue: typ,
		Limit:    r.pageSize,
	}

	for {
		page, err := r.store.FindKeys(ctx, q)
		if err != nil {
			if errors.Is(err, db.ErrIndexNotFound) {
				return nil, nil
			}
			return nil, fmt.Errorf("find keys of type %q: %w", typ, err)
		}
		for _, key := range page.Keys {
			if id, ok := r.keys.ID(key); ok {
				ids = append(ids, id)
			}
		}
		q.Offset += len(page.Keys)
		if len(page.Keys) == 0 || len(page.Keys) < q.Limit || (page.Total >= 0 && q.Offset >= page.Total) {
			return ids, nil
		}
	}
}
