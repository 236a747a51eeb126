package asynchook

import (
	"sync"
	"testing"
	"time"

	"github.com/unkn0wn-root/ccfacade"
)

type countingHooks struct {
	ccfacade.NopHooks
	mu    sync.Mutex
	n     int
	block chan struct{}
}

func (c *countingHooks) RetriesExhausted(string, int) {
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func TestAsyncDeliversBeforeClose(t *testing.T) {
	inner := &countingHooks{}
	h := New(inner, 2, 16)
	for i := 0; i < 10; i++ {
		h.RetriesExhausted("k", 3)
	}
	h.Close()
	if inner.n != 10 {
		t.Fatalf("delivered %d events, want 10", inner.n)
	}
	if h.Dropped() != 0 {
		t.Fatalf("dropped %d", h.Dropped())
	}
}

func TestAsyncDropsWhenFull(t *testing.T) {
	inner := &countingHooks{block: make(chan struct{})}
	h := New(inner, 1, 1)

	// first event occupies the worker, second fills the queue
	h.RetriesExhausted("k", 1)
	time.Sleep(20 * time.Millisecond)
	h.RetriesExhausted("k", 2)
	h.RetriesExhausted("k", 3)

	if h.Dropped() == 0 {
		t.Fatalf("expected drops with a full queue")
	}
	close(inner.block)
	h.Close()
}

func TestAsyncAfterCloseIsDropped(t *testing.T) {
	h := New(&countingHooks{}, 1, 4)
	h.Close()
	h.WriteFailed("k", nil)
	h.Close()
	if h.Dropped() != 1 {
		t.Fatalf("dropped = %d, want 1", h.Dropped())
	}
}
