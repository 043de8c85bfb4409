package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/indexsync/internal/db"
)

// FindKeys lists keys whose TAG field equals the query value via FT.SEARCH NOCONTENT.
func (s *Store) FindKeys(ctx context.Context, q *db.KeyQuery) (*db.KeyPage, error) {
	if q.Index == "" {
		return nil, errors.New("index name is required")
	}
	if q.TagField == "" {
		return nil, errors.New("tag field is required")
	}
	if q.Limit <= 0 {
		return nil, errors.New("limit must be positive")
	}

	query := fmt.Sprintf("@%s:{%s}", q.TagField, EscapeTag(q.TagValue))
	cmd := s.b().Arbitrary("FT.SEARCH").Args(
		q.Index, query,
		"NOCONTENT",
		"LIMIT", strconv.Itoa(q.Offset), strconv.Itoa(q.Limit),
		"DIALECT", "2",
	).Build()

	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isUnknownIndex(err) {
			return nil, db.ErrIndexNotFound
		}
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseKeyPage(raw)
}

// parseKeyPage reads a NOCONTENT reply: [total, key1, key2, ...].
func parseKeyPage(raw []rueidis.RedisMessage) (*db.KeyPage, error) {
	if len(raw) == 0 {
		return &db.KeyPage{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}

	keys := make([]string, 0, len(raw)-1)
	for _, m := range raw[1:] {
		key, err := m.ToString()
		if err != nil {
			return nil, fmt.Errorf("parse key: %w", err)
		}
		keys = append(keys, key)
	}

	return &db.KeyPage{Total: int(total), Keys: keys}, nil
}

// EscapeTag escapes a value for use inside a TAG query {...}.
func EscapeTag(s string) string {
	return tagEscaper.Replace(s)
}

var tagEscaper = strings.NewReplacer(
	`\`, `\\`,
	` `, `\ `,
	`,`, `\,`,
	`.`, `\.`,
	`<`, `\<`,
	`>`, `\>`,
	`{`, `\{`,
	`}`, `\}`,
	`[`, `\[`,
	`]`, `\]`,
	`"`, `\"`,
	`'`, `\'`,
	`:`, `\:`,
	`;`, `\;`,
	`!`, `\!`,
	`@`, `\@`,
	`#`, `\#`,
	`$`, `\$`,
	`%`, `\%`,
	`^`, `\^`,
	`&`, `\&`,
	`*`, `\*`,
	`(`, `\(`,
	`)`, `\)`,
	`-`, `\-`,
	`+`, `\+`,
	`=`, `\=`,
	`~`, `\~`,
	`|`, `\|`,
	`/`, `\/`,
)
