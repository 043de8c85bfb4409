// Package failure surfaces per-item bulk failures and owns the whole-call retry policy.
package failure

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/indexsync/internal/domain/batch"
	"github.com/kailas-cloud/indexsync/internal/logger"
	"github.com/kailas-cloud/indexsync/internal/metrics"
)

// DefaultCapacity is the number of recent failures kept for inspection.
const DefaultCapacity = 1000

// Operation labels.
const (
	OpUpload    = "upload"
	OpDelete    = "delete"
	OpTranslate = "translate"
)

// Failure is a single rejected item.
type Failure struct {
	At     time.Time `json:"at"`
	Op     string    `json:"op"`
	Type   string    `json:"type"`
	Key    string    `json:"key"`
	Reason string    `json:"reason"`
}

// Observer is notified of every recorded failure.
type Observer interface {
	OnFailure(ctx context.Context, f Failure)
}

// ObserverFunc adapts a function to an Observer.
type ObserverFunc func(ctx context.Context, f Failure)

// OnFailure calls fn.
func (fn ObserverFunc) OnFailure(ctx context.Context, f Failure) { fn(ctx, f) }

// Reporter records failures from bulk operations. Safe for concurrent use.
type Reporter struct {
	logger    *zap.Logger
	observers []Observer
	now       func() time.Time

	mu     sync.Mutex
	ring   []Failure
	next   int
	filled bool
}

// NewReporter creates a Reporter keeping up to capacity recent failures.
// capacity <= 0 means DefaultCapacity.
func NewReporter(l *zap.Logger, capacity int, observers ...Observer) *Reporter {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if l == nil {
		l = zap.NewNop()
	}
	return &Reporter{
		logger:    l,
		observers: observers,
		now:       time.Now,
		ring:      make([]Failure, capacity),
	}
}

// Report records every failed result and returns how many there were.
// Succeeded results are ignored.
func (r *Reporter) Report(ctx context.Context, op, typ string, results []batch.Result) int {
	log := logger.FromContextOr(ctx, r.logger)
	n := 0
	for _, res := range results {
		if res.OK() {
			continue
		}
		f := Failure{At: r.now(), Op: op, Type: typ, Key: res.Key(), Reason: res.Reason()}
		log.Warn("bulk item rejected",
			zap.String("op", op),
			zap.String("type", typ),
			zap.String("key", f.Key),
			zap.String("reason", f.Reason),
		)
		metrics.SyncFailuresTotal.WithLabelValues(op).Inc()
		r.remember(f)
		for _, o := range r.observers {
			o.OnFailure(ctx, f)
		}
		n++
	}
	return n
}

// Fatal logs an error that aborted an operation.
func (r *Reporter) Fatal(ctx context.Context, op, typ string, err error) {
	logger.FromContextOr(ctx, r.logger).Error("sync aborted",
		zap.String("op", op),
		zap.String("type", typ),
		zap.Error(err),
	)
}

// Recent returns the retained failures, oldest first.
func (r *Reporter) Recent() []Failure {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.filled {
		out := make([]Failure, r.next)
		copy(out, r.ring[:r.next])
		return out
	}
	out := make([]Failure, 0, len(r.ring))
	out = append(out, r.ring[r.next:]...)
	return append(out, r.ring[:r.next]...)
}

func (r *Reporter) remember(f Failure) {
	r.mu.Lock()
	r.ring[r.next] = f
	r.next++
	if r.next == len(r.ring) {
		r.next = 0
		r.filled = true
	}
	r.mu.Unlock()
}
