package db

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

const readyPollInterval = 100 * time.Millisecond

// ErrClosed is returned by a Handle after Close.
var ErrClosed = errors.New("db: handle closed")

var _ Store = (*Handle)(nil)

// Opener constructs a Store.
type Opener func() (Store, error)

// Handle constructs its Store on first use. Concurrent first callers share
// a single construction. Only a successful construction is kept, so a failed
// open is retried by the next caller.
type Handle struct {
	open Opener

	mu     sync.Mutex
	store  Store
	closed bool
}

// NewHandle creates a lazy handle around open.
func NewHandle(open Opener) *Handle {
	return &Handle{open: open}
}

// Get returns the store, constructing it if no construction has succeeded yet.
func (h *Handle) Get() (Store, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrClosed
	}
	if h.store != nil {
		return h.store, nil
	}
	s, err := h.open()
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, errors.New("db: opener returned no store")
	}
	h.store = s
	return s, nil
}

// Close releases the store once, and only if it was constructed.
func (h *Handle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	if h.store != nil {
		h.store.Close()
	}
}

// Ping constructs the store if needed and pings it.
func (h *Handle) Ping(ctx context.Context) error {
	s, err := h.Get()
	if err != nil {
		return err
	}
	return s.Ping(ctx)
}

// CreateIndex implements IndexManager.
func (h *Handle) CreateIndex(ctx context.Context, def *IndexDefinition) error {
	s, err := h.Get()
	if err != nil {
		return err
	}
	return s.CreateIndex(ctx, def)
}

// DropIndex implements IndexManager.
func (h *Handle) DropIndex(ctx context.Context, name string) error {
	s, err := h.Get()
	if err != nil {
		return err
	}
	return s.DropIndex(ctx, name)
}

// IndexExists implements IndexManager.
func (h *Handle) IndexExists(ctx context.Context, name string) (bool, error) {
	s, err := h.Get()
	if err != nil {
		return false, err
	}
	return s.IndexExists(ctx, name)
}

// Bulk implements BulkWriter.
func (h *Handle) Bulk(ctx context.Context, ops []BulkOp) ([]BulkResult, error) {
	s, err := h.Get()
	if err != nil {
		return nil, err
	}
	return s.Bulk(ctx, ops)
}

// FindKeys implements KeyFinder.
func (h *Handle) FindKeys(ctx context.Context, q *KeyQuery) (*KeyPage, error) {
	s, err := h.Get()
	if err != nil {
		return nil, err
	}
	return s.FindKeys(ctx, q)
}

// WaitForReady retries construction until it succeeds, then waits for the
// store to answer. Both phases share timeout.
func (h *Handle) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s, err := h.Get()
	if err != nil {
		ticker := time.NewTicker(readyPollInterval)
		defer ticker.Stop()

		for err != nil {
			if errors.Is(err, ErrClosed) {
				return err
			}
			select {
			case <-ctx.Done():
				return fmt.Errorf("timeout waiting for database: %w", errors.Join(ctx.Err(), err))
			case <-ticker.C:
				s, err = h.Get()
			}
		}
	}

	deadline, _ := ctx.Deadline()
	return s.WaitForReady(ctx, time.Until(deadline))
}
