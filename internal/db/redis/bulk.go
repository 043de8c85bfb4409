package redis

import (
	"context"
	"errors"
	"maps"
	"slices"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/indexsync/internal/db"
)

var errNoFields = errors.New("upload has no fields")

// replaceScript swaps a hash atomically. The shebang makes the server refuse
// the whole script under OOM instead of failing after the DEL.
const replaceScript = `#!lua
redis.call('DEL', KEYS[1])
return redis.call('HSET', KEYS[1], unpack(ARGV))`

// Bulk submits ops in a single DoMulti round trip, one command per op.
// An upload replaces the hash atomically so stale fields do not survive; a delete is DEL.
// Server replies are per-op results. If any command fails in transport the
// whole call fails with a *db.Error.
func (s *Store) Bulk(ctx context.Context, ops []db.BulkOp) ([]db.BulkResult, error) {
	results := make([]db.BulkResult, len(ops))
	if len(ops) == 0 {
		return results, nil
	}

	cmds := make(rueidis.Commands, 0, len(ops))
	owner := make([]int, 0, len(ops)) // cmd index -> op index

	for i, op := range ops {
		results[i] = db.BulkResult{Key: op.Key, Succeeded: true}

		if op.Key == "" {
			results[i] = db.BulkResult{Key: op.Key, Err: db.ErrEmptyKey}
			continue
		}

		switch op.Action {
		case db.BulkDelete:
			cmds = append(cmds, s.b().Del().Key(op.Key).Build())
			owner = append(owner, i)

		case db.BulkUpload:
			if len(op.Fields) == 0 {
				results[i] = db.BulkResult{Key: op.Key, Err: errNoFields}
				continue
			}
			cmds = append(cmds, s.replaceCmd(op.Key, op.Fields))
			owner = append(owner, i)

		default:
			results[i] = db.BulkResult{Key: op.Key, Err: errors.New("unknown bulk action " + string(op.Action))}
		}
	}

	if len(cmds) == 0 {
		return results, nil
	}

	replies := s.client.DoMulti(ctx, cmds...)
	for j, reply := range replies {
		err := reply.Error()
		if err == nil {
			continue
		}
		if !IsServerReply(err) {
			return nil, &db.Error{Op: db.OpPipeline, Err: err}
		}
		i := owner[j]
		results[i] = db.BulkResult{Key: ops[i].Key, Err: err}
	}

	return results, nil
}

// replaceCmd builds the EVAL of replaceScript with fields in name order.
func (s *Store) replaceCmd(key string, fields map[string]string) rueidis.Completed {
	args := make([]string, 0, 2*len(fields))
	for _, name := range slices.Sorted(maps.Keys(fields)) {
		args = append(args, name, fields[name])
	}
	return s.b().Eval().Script(replaceScript).Numkeys(1).Key(key).Arg(args...).Build()
}
