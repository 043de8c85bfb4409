package failure

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/indexsync/internal/domain/batch"
	"github.com/kailas-cloud/indexsync/internal/metrics"
)

func results(ok []string, failed map[string]error) []batch.Result {
	out := make([]batch.Result, 0, len(ok)+len(failed))
	for _, k := range ok {
		out = append(out, batch.NewOK(k))
	}
	for k, err := range failed {
		out = append(out, batch.NewError(k, err))
	}
	return out
}

// --- Reporter ---

func TestReport_RecordsOnlyFailures(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	var seen []Failure
	r := NewReporter(zap.New(core), 10, ObserverFunc(func(_ context.Context, f Failure) {
		seen = append(seen, f)
	}))

	before := testutil.ToFloat64(metrics.SyncFailuresTotal.WithLabelValues(OpUpload))
	n := r.Report(context.Background(), OpUpload, "article", results(
		[]string{"1", "2", "3"},
		map[string]error{"4": errors.New("bad field")},
	))

	if n != 1 {
		t.Fatalf("Report returned %d, want 1", n)
	}
	if logs.Len() != 1 {
		t.Errorf("expected 1 warn entry, got %d", logs.Len())
	}
	if len(seen) != 1 || seen[0].Key != "4" || seen[0].Reason != "bad field" || seen[0].Type != "article" {
		t.Errorf("observer saw %+v", seen)
	}
	after := testutil.ToFloat64(metrics.SyncFailuresTotal.WithLabelValues(OpUpload))
	if after-before != 1 {
		t.Errorf("failure counter moved by %v, want 1", after-before)
	}
}

func TestReport_NilReason(t *testing.T) {
	r := NewReporter(nil, 10)
	r.Report(context.Background(), OpDelete, "article", []batch.Result{batch.NewError("k", nil)})
	got := r.Recent()
	if len(got) != 1 || got[0].Reason != "rejected" {
		t.Fatalf("Recent() = %+v", got)
	}
}

func TestRecent_RingOrder(t *testing.T) {
	r := NewReporter(zap.NewNop(), 3)
	for i := range 5 {
		r.Report(context.Background(), OpUpload, "t", []batch.Result{
			batch.NewError(fmt.Sprintf("k%d", i), errors.New("x")),
		})
	}
	got := r.Recent()
	if len(got) != 3 {
		t.Fatalf("expected 3 retained, got %d", len(got))
	}
	for i, want := range []string{"k2", "k3", "k4"} {
		if got[i].Key != want {
			t.Errorf("Recent()[%d] = %q, want %q", i, got[i].Key, want)
		}
	}
}

func TestRecent_Partial(t *testing.T) {
	r := NewReporter(zap.NewNop(), 0)
	if len(r.ring) != DefaultCapacity {
		t.Fatalf("capacity = %d, want %d", len(r.ring), DefaultCapacity)
	}
	if got := r.Recent(); len(got) != 0 {
		t.Fatalf("expected empty, got %d", len(got))
	}
	r.Report(context.Background(), OpUpload, "t", []batch.Result{batch.NewError("a", errors.New("x"))})
	if got := r.Recent(); len(got) != 1 || got[0].Key != "a" {
		t.Fatalf("Recent() = %+v", got)
	}
}

func TestReport_Concurrent(t *testing.T) {
	r := NewReporter(zap.NewNop(), 50)
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Report(context.Background(), OpUpload, "t", []batch.Result{
				batch.NewError(fmt.Sprintf("k%d", i), errors.New("x")),
			})
		}(i)
	}
	wg.Wait()
	if got := r.Recent(); len(got) != 20 {
		t.Fatalf("expected 20 failures, got %d", len(got))
	}
}

func TestFatal_LogsError(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	r := NewReporter(zap.New(core), 1)
	r.Fatal(context.Background(), OpDelete, "article", errors.New("boom"))
	if logs.Len() != 1 {
		t.Fatalf("expected 1 error entry, got %d", logs.Len())
	}
}

// --- Policy ---

func fastPolicy(attempts int) Policy {
	return Policy{MaxAttempts: attempts, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

func TestDo_TransientThenSuccess(t *testing.T) {
	before := testutil.ToFloat64(metrics.BulkRetriesTotal)
	calls := 0
	err := fastPolicy(3).Do(context.Background(), OpUpload, func(context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("connection reset")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if d := testutil.ToFloat64(metrics.BulkRetriesTotal) - before; d != 1 {
		t.Errorf("retry counter moved by %v, want 1", d)
	}
}

func TestDo_PermanentNotRetried(t *testing.T) {
	boom := errors.New("wrong type")
	calls := 0
	err := fastPolicy(5).Do(context.Background(), OpUpload, func(context.Context) error {
		calls++
		return Permanent(boom)
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_Exhausted(t *testing.T) {
	boom := errors.New("timeout")
	calls := 0
	err := fastPolicy(3).Do(context.Background(), OpUpload, func(context.Context) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDo_SingleAttempt(t *testing.T) {
	calls := 0
	_ = fastPolicy(1).Do(context.Background(), OpUpload, func(context.Context) error {
		calls++
		return errors.New("x")
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Policy{MaxAttempts: 10, InitialInterval: time.Hour, MaxInterval: time.Hour}.Do(ctx, OpUpload,
		func(context.Context) error {
			calls++
			cancel()
			return errors.New("x")
		})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestPermanent_Nil(t *testing.T) {
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) must be nil")
	}
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	if p.MaxAttempts != 3 || p.InitialInterval != 100*time.Millisecond || p.MaxInterval != 2*time.Second {
		t.Errorf("unexpected defaults: %+v", p)
	}
}
