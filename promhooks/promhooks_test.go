package promhooks

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHooksCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := New(reg)

	h.ContentionRetry("1", 1, 100*time.Millisecond)
	h.ContentionRetry("1", 2, 200*time.Millisecond)
	h.RetriesExhausted("1", 3)
	h.WriteFailed("2", errors.New("boom"))
	h.ReadFailed("3", errors.New("boom"))
	h.ReadFailed("3", errors.New("boom"))

	if got := testutil.ToFloat64(h.Retries); got != 2 {
		t.Fatalf("retries = %v, want 2", got)
	}
	if got := testutil.ToFloat64(h.Exhausted); got != 1 {
		t.Fatalf("exhausted = %v, want 1", got)
	}
	if got := testutil.ToFloat64(h.WriteFailures); got != 1 {
		t.Fatalf("write failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(h.ReadFailures); got != 2 {
		t.Fatalf("read failures = %v, want 2", got)
	}
	if n := testutil.CollectAndCount(h.RetryDelay); n != 1 {
		t.Fatalf("histogram series = %d", n)
	}
}

func TestNewRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected duplicate registration to panic")
		}
	}()
	New(reg)
}
