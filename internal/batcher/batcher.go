// Package batcher splits a pull-based stream into bounded, order-preserving groups.
package batcher

import (
	"context"
	"errors"
	"io"
)

// MaxSize is the largest group the remote bulk API accepts.
const MaxSize = 1000

// Source is a single-pass pull stream. Next returns io.EOF when drained.
type Source[T any] interface {
	Next(ctx context.Context) (T, error)
}

// Batcher groups items from a Source. Not safe for concurrent use.
type Batcher[T any] struct {
	src     Source[T]
	maxSize int
	done    bool
}

// New creates a Batcher. maxSize is clamped to [1, MaxSize].
func New[T any](src Source[T], maxSize int) *Batcher[T] {
	if maxSize <= 0 || maxSize > MaxSize {
		maxSize = MaxSize
	}
	return &Batcher[T]{src: src, maxSize: maxSize}
}

// Next returns the next group of up to maxSize items.
// It returns io.EOF once the source is exhausted, and on every call after that.
// A source error is returned once; the batcher is exhausted afterwards and
// items read before the error are dropped.
func (b *Batcher[T]) Next(ctx context.Context) ([]T, error) {
	if b.done {
		return nil, io.EOF
	}

	group := make([]T, 0, b.maxSize)
	for len(group) < b.maxSize {
		if err := ctx.Err(); err != nil {
			b.done = true
			return nil, err
		}
		item, err := b.src.Next(ctx)
		if errors.Is(err, io.EOF) {
			b.done = true
			break
		}
		if err != nil {
			b.done = true
			return nil, err
		}
		group = append(group, item)
	}

	if len(group) == 0 {
		return nil, io.EOF
	}
	return group, nil
}

// Each drains the batcher, calling fn for every group.
// It stops on the first error from the source or from fn.
func (b *Batcher[T]) Each(ctx context.Context, fn func([]T) error) error {
	for {
		group, err := b.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(group); err != nil {
			return err
		}
	}
}

type sliceSource[T any] struct {
	items []T
	pos   int
}

// FromSlice adapts a slice to a Source.
func FromSlice[T any](items []T) Source[T] {
	return &sliceSource[T]{items: items}
}

func (s *sliceSource[T]) Next(_ context.Context) (T, error) {
	if s.pos >= len(s.items) {
		var zero T
		return zero, io.EOF
	}
	item := s.items[s.pos]
	s.pos++
	return item, nil
}

// SourceFunc adapts a function to a Source.
type SourceFunc[T any] func(ctx context.Context) (T, error)

// Next calls f.
func (f SourceFunc[T]) Next(ctx context.Context) (T, error) { return f(ctx) }
