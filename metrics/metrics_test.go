package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordView(t *testing.T) {
	before := testutil.ToFloat64(PropertyViews.WithLabelValues(ViewNew))
	RecordView(ViewNew)
	RecordView(ViewNew)
	if got := testutil.ToFloat64(PropertyViews.WithLabelValues(ViewNew)) - before; got != 2 {
		t.Errorf("new views delta = %v, want 2", got)
	}
}

func TestRecordStorageSnapshot(t *testing.T) {
	okBefore := testutil.ToFloat64(StorageSnapshots.WithLabelValues("ok"))
	errBefore := testutil.ToFloat64(StorageSnapshots.WithLabelValues("error"))

	RecordStorageSnapshot(12, 10, 2, 340.5, 300.5, 40, nil)
	if got := testutil.ToFloat64(StorageSizeMB.WithLabelValues("total")); got != 340.5 {
		t.Errorf("total size gauge = %v, want 340.5", got)
	}
	if got := testutil.ToFloat64(StorageFiles.WithLabelValues("brochure")); got != 2 {
		t.Errorf("brochure files gauge = %v, want 2", got)
	}

	// A failed snapshot must leave the last published totals alone.
	RecordStorageSnapshot(0, 0, 0, 0, 0, 0, errors.New("provider down"))
	if got := testutil.ToFloat64(StorageSizeMB.WithLabelValues("total")); got != 340.5 {
		t.Errorf("total size gauge after failure = %v, want 340.5", got)
	}

	if got := testutil.ToFloat64(StorageSnapshots.WithLabelValues("ok")) - okBefore; got != 1 {
		t.Errorf("ok snapshots delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(StorageSnapshots.WithLabelValues("error")) - errBefore; got != 1 {
		t.Errorf("error snapshots delta = %v, want 1", got)
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	before := testutil.CollectAndCount(HTTPRequestDuration)
	RecordHTTPRequest("POST", "/api/v1/properties/:id/view", 200, 15*time.Millisecond)
	if got := testutil.CollectAndCount(HTTPRequestDuration); got < before || got == 0 {
		t.Errorf("histogram series = %d, want at least one", got)
	}
}
