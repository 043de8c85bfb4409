// Package sqlsource reads field declarations and records from a SQL database.
//
// Three tables are used:
//
//	index_fields(item_type, name, field_type, sortable, analyzer)
//	index_items(id, item_type)
//	index_values(item_id, name, value)
package sqlsource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kailas-cloud/indexsync/internal/batcher"
	"github.com/kailas-cloud/indexsync/internal/domain"
	"github.com/kailas-cloud/indexsync/internal/domain/document"
	"github.com/kailas-cloud/indexsync/internal/domain/field"
)

// PlaceholderStyle is the bind parameter syntax of a driver.
type PlaceholderStyle int

// Placeholder styles.
const (
	PlaceholderQuestion PlaceholderStyle = iota // ?
	PlaceholderDollar                           // $1, $2, ...
)

var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS index_fields (
		item_type  TEXT NOT NULL,
		name       TEXT NOT NULL,
		field_type TEXT NOT NULL,
		sortable   BOOLEAN NOT NULL DEFAULT FALSE,
		analyzer   TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (item_type, name)
	)`,
	`CREATE TABLE IF NOT EXISTS index_items (
		id        TEXT PRIMARY KEY,
		item_type TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS index_items_type ON index_items (item_type, id)`,
	`CREATE TABLE IF NOT EXISTS index_values (
		item_id TEXT NOT NULL,
		name    TEXT NOT NULL,
		value   TEXT NOT NULL,
		PRIMARY KEY (item_id, name)
	)`,
}

// Source is a SQL-backed record and field source. Safe for concurrent use.
type Source struct {
	db    *sql.DB
	style PlaceholderStyle
}

// New wraps an open database. The caller keeps ownership of db until Close.
func New(db *sql.DB, style PlaceholderStyle) *Source {
	return &Source{db: db, style: style}
}

// DB returns the underlying database.
func (s *Source) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Source) Close() error { return s.db.Close() }

// Ping checks the database connection.
func (s *Source) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Migrate creates the source tables if they do not exist.
func (s *Source) Migrate(ctx context.Context) error {
	for _, stmt := range schemaDDL {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating source tables: %w", err)
		}
	}
	return nil
}

// Fields returns the declared fields grouped by type, ordered by name.
func (s *Source) Fields(ctx context.Context) (map[string][]field.Descriptor, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT item_type, name, field_type, sortable, analyzer FROM index_fields ORDER BY item_type, name`)
	if err != nil {
		return nil, fmt.Errorf("querying fields: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]field.Descriptor)
	for rows.Next() {
		var (
			typ, name, ftype, analyzer string
			sortable                   bool
		)
		if err := rows.Scan(&typ, &name, &ftype, &sortable, &analyzer); err != nil {
			return nil, fmt.Errorf("scanning field: %w", err)
		}
		d, err := field.New(name, field.Type(ftype), sortable, analyzer)
		if err != nil {
			return nil, fmt.Errorf("type %q: %w", typ, err)
		}
		out[typ] = append(out[typ], d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating fields: %w", err)
	}
	return out, nil
}

// Types returns every type that declares fields or owns items.
func (s *Source) Types(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT item_type FROM index_fields UNION SELECT item_type FROM index_items ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("querying types: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var typ string
		if err := rows.Scan(&typ); err != nil {
			return nil, fmt.Errorf("scanning type: %w", err)
		}
		out = append(out, typ)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating types: %w", err)
	}
	return out, nil
}

// Records streams the records of typ over a single cursor. The stream must be closed.
func (s *Source) Records(ctx context.Context, typ string) (batcher.Source[document.Record], error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT i.id, v.name, v.value
		   FROM index_items i
		   LEFT JOIN index_values v ON v.item_id = i.id
		  WHERE i.item_type = ?
		  ORDER BY i.id, v.name`), typ)
	if err != nil {
		return nil, fmt.Errorf("querying records of type %q: %w", typ, err)
	}
	return &recordStream{rows: rows, typ: typ}, nil
}

// Record loads one record by id.
func (s *Source) Record(ctx context.Context, id string) (document.Record, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT i.item_type, v.name, v.value
		   FROM index_items i
		   LEFT JOIN index_values v ON v.item_id = i.id
		  WHERE i.id = ?`), id)
	if err != nil {
		return document.Record{}, fmt.Errorf("querying record %q: %w", id, err)
	}
	defer rows.Close()

	var (
		typ    string
		found  bool
		fields = make(map[string]string)
	)
	for rows.Next() {
		var name, value sql.NullString
		if err := rows.Scan(&typ, &name, &value); err != nil {
			return document.Record{}, fmt.Errorf("scanning record %q: %w", id, err)
		}
		found = true
		if name.Valid {
			fields[name.String] = value.String
		}
	}
	if err := rows.Err(); err != nil {
		return document.Record{}, fmt.Errorf("iterating record %q: %w", id, err)
	}
	if !found {
		return document.Record{}, fmt.Errorf("record %q: %w", id, domain.ErrNotFound)
	}
	return document.NewRecord(id, typ, fields)
}

// PutFields replaces the field declarations of typ.
func (s *Source) PutFields(ctx context.Context, typ string, descs ...field.Descriptor) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM index_fields WHERE item_type = ?`), typ); err != nil {
			return err
		}
		for _, d := range descs {
			if _, err := tx.ExecContext(ctx, s.rebind(
				`INSERT INTO index_fields (item_type, name, field_type, sortable, analyzer) VALUES (?, ?, ?, ?, ?)`),
				typ, d.Name(), string(d.Type()), d.Sortable(), d.Analyzer(),
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// PutRecord inserts or replaces a record and all of its values.
func (s *Source) PutRecord(ctx context.Context, rec document.Record) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM index_values WHERE item_id = ?`), rec.ID()); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM index_items WHERE id = ?`), rec.ID()); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.rebind(
			`INSERT INTO index_items (id, item_type) VALUES (?, ?)`), rec.ID(), rec.Type(),
		); err != nil {
			return err
		}
		for name, value := range rec.Fields() {
			if _, err := tx.ExecContext(ctx, s.rebind(
				`INSERT INTO index_values (item_id, name, value) VALUES (?, ?, ?)`), rec.ID(), name, value,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteRecord removes a record. Missing ids are not an error.
func (s *Source) DeleteRecord(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM index_values WHERE item_id = ?`), id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM index_items WHERE id = ?`), id)
		return err
	})
}

func (s *Source) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders for the driver's style.
func (s *Source) rebind(query string) string {
	if s.style != PlaceholderDollar {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type valueRow struct {
	id    string
	name  sql.NullString
	value sql.NullString
}

// recordStream groups consecutive rows sharing an id into one record.
type recordStream struct {
	rows *sql.Rows
	typ  string
	head *valueRow
}

func (s *recordStream) Next(ctx context.Context) (document.Record, error) {
	if err := ctx.Err(); err != nil {
		return document.Record{}, err
	}
	if s.head == nil {
		r, err := s.scan()
		if err != nil {
			return document.Record{}, err
		}
		s.head = r
	}

	id := s.head.id
	fields := make(map[string]string)
	for s.head != nil && s.head.id == id {
		if s.head.name.Valid {
			fields[s.head.name.String] = s.head.value.String
		}
		r, err := s.scan()
		if errors.Is(err, io.EOF) {
			s.head = nil
			break
		}
		if err != nil {
			return document.Record{}, err
		}
		s.head = r
	}
	return document.NewRecord(id, s.typ, fields)
}

func (s *recordStream) scan() (*valueRow, error) {
	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			return nil, fmt.Errorf("iterating records: %w", err)
		}
		return nil, io.EOF
	}
	var r valueRow
	if err := s.rows.Scan(&r.id, &r.name, &r.value); err != nil {
		return nil, fmt.Errorf("scanning record: %w", err)
	}
	return &r, nil
}

func (s *recordStream) Close() error { return s.rows.Close() }
