package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterSyncMetrics_Idempotent(t *testing.T) {
	RegisterSyncMetrics()
	RegisterSyncMetrics()

	err := prometheus.Register(BulkRetriesTotal)
	var already prometheus.AlreadyRegisteredError
	if err == nil {
		t.Fatal("expected BulkRetriesTotal to be registered already")
	}
	if !errors.As(err, &already) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSyncCounters(t *testing.T) {
	before := testutil.ToFloat64(DocumentsIndexedTotal.WithLabelValues("metrics-test"))
	DocumentsIndexedTotal.WithLabelValues("metrics-test").Add(3)
	if d := testutil.ToFloat64(DocumentsIndexedTotal.WithLabelValues("metrics-test")) - before; d != 3 {
		t.Errorf("indexed counter moved by %f, want 3", d)
	}

	BatchDuration.WithLabelValues("upload").Observe(0.01)
	if testutil.CollectAndCount(BatchDuration) == 0 {
		t.Error("expected batch duration observations")
	}
}
