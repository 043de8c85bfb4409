// Package memory is an in-process record and field source.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/kailas-cloud/indexsync/internal/batcher"
	"github.com/kailas-cloud/indexsync/internal/domain"
	"github.com/kailas-cloud/indexsync/internal/domain/document"
	"github.com/kailas-cloud/indexsync/internal/domain/field"
)

// Source keeps declarations and records in memory. Safe for concurrent use.
type Source struct {
	mu      sync.RWMutex
	fields  map[string][]field.Descriptor
	records map[string]document.Record // id -> record
}

// New creates an empty Source.
func New() *Source {
	return &Source{
		fields:  make(map[string][]field.Descriptor),
		records: make(map[string]document.Record),
	}
}

// Declare replaces the field declarations of typ.
func (s *Source) Declare(typ string, descs ...field.Descriptor) {
	s.mu.Lock()
	s.fields[typ] = slices.Clone(descs)
	s.mu.Unlock()
}

// Put inserts or replaces records by id.
func (s *Source) Put(recs ...document.Record) {
	s.mu.Lock()
	for _, r := range recs {
		s.records[r.ID()] = r
	}
	s.mu.Unlock()
}

// Delete removes a record.
func (s *Source) Delete(id string) {
	s.mu.Lock()
	delete(s.records, id)
	s.mu.Unlock()
}

func (s *Source) Fields(context.Context) (map[string][]field.Descriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]field.Descriptor, len(s.fields))
	for typ, descs := range s.fields {
		out[typ] = slices.Clone(descs)
	}
	return out, nil
}

func (s *Source) Types(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := make(map[string]struct{}, len(s.fields))
	for typ := range s.fields {
		set[typ] = struct{}{}
	}
	for _, r := range s.records {
		set[r.Type()] = struct{}{}
	}
	return slices.Sorted(maps.Keys(set)), nil
}

// Records returns a snapshot of the records of typ ordered by id.
func (s *Source) Records(_ context.Context, typ string) (batcher.Source[document.Record], error) {
	s.mu.RLock()
	var out []document.Record
	for _, r := range s.records {
		if r.Type() == typ {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b document.Record) int { return cmp.Compare(a.ID(), b.ID()) })
	return batcher.FromSlice(out), nil
}

func (s *Source) Record(_ context.Context, id string) (document.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return document.Record{}, fmt.Errorf("record %q: %w", id, domain.ErrNotFound)
	}
	return r, nil
}

func (s *Source) Ping(context.Context) error { return nil }

func (s *Source) Close() error { return nil }
