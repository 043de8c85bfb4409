// Package valkey implements db.Store on Valkey with the valkey-search module.
//
// valkey-search indexes TAG and NUMERIC fields only, has no SORTABLE and no
// stemming language, and cannot run a bare tag query without KNN. The store
// degrades definitions accordingly and finds keys by type with SCAN + HGET.
package valkey

import (
	"context"
	"sort"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/indexsync/internal/db"
	"github.com/kailas-cloud/indexsync/internal/db/redis"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// scanCount is the SCAN COUNT hint.
const scanCount = 500

// Store is the redis store with valkey-search overrides.
type Store struct {
	*redis.Store
}

// NewStore creates a Valkey store via rueidis.
func NewStore(cfg redis.Config) (*Store, error) {
	client, err := redis.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Store: redis.NewStoreWithClient(client)}, nil
}

// CreateIndex creates the index after degrading TEXT to TAG and dropping
// SORTABLE, NOSTEM and LANGUAGE.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if def == nil {
		return s.Store.CreateIndex(ctx, nil)
	}
	return s.Store.CreateIndex(ctx, Degrade(def))
}

// Degrade returns a copy of def that valkey-search accepts.
func Degrade(def *db.IndexDefinition) *db.IndexDefinition {
	out := *def
	out.Language = ""
	out.Prefixes = append([]string(nil), def.Prefixes...)
	out.Fields = make([]db.IndexField, len(def.Fields))
	for i, f := range def.Fields {
		f.Sortable = false
		if f.Type == db.IndexFieldText {
			f.Type = db.IndexFieldTag
			f.NoStem = false
		}
		out.Fields[i] = f
	}
	return &out
}

// FindKeys scans the key prefix and keeps keys whose TAG field equals the value.
// Matches are sorted so paging is stable while the keyspace is unchanged.
func (s *Store) FindKeys(ctx context.Context, q *db.KeyQuery) (*db.KeyPage, error) {
	keys, err := s.scan(ctx, q.Prefix+"*")
	if err != nil {
		return nil, err
	}

	matched, err := s.filterByField(ctx, keys, q.TagField, q.TagValue)
	if err != nil {
		return nil, err
	}
	sort.Strings(matched)

	total := len(matched)
	if q.Offset >= total {
		return &db.KeyPage{Total: total}, nil
	}
	end := total
	if q.Limit > 0 && q.Offset+q.Limit < total {
		end = q.Offset + q.Limit
	}
	return &db.KeyPage{Total: total, Keys: matched[q.Offset:end]}, nil
}

func (s *Store) scan(ctx context.Context, pattern string) ([]string, error) {
	c := s.Client()
	var keys []string
	var cursor uint64

	for {
		cmd := c.B().Scan().Cursor(cursor).Match(pattern).Count(scanCount).Build()
		res, err := c.Do(ctx, cmd).AsScanEntry()
		if err != nil {
			return nil, &db.Error{Op: db.OpScan, Err: err}
		}
		keys = append(keys, res.Elements...)
		cursor = res.Cursor
		if cursor == 0 {
			break
		}
	}

	return keys, nil
}

// filterByField fetches field for every key in one pipeline.
// Missing keys or fields do not match.
func (s *Store) filterByField(ctx context.Context, keys []string, field, value string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	c := s.Client()
	cmds := make(rueidis.Commands, len(keys))
	for i, key := range keys {
		cmds[i] = c.B().Hget().Key(key).Field(field).Build()
	}

	var out []string
	for i, res := range c.DoMulti(ctx, cmds...) {
		v, err := res.ToString()
		if err != nil {
			if rueidis.IsRedisNil(err) || redis.IsServerReply(err) {
				continue
			}
			return nil, &db.Error{Op: db.OpHGet, Err: err}
		}
		if v == value {
			out = append(out, keys[i])
		}
	}
	return out, nil
}
