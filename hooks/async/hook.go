// Package asynchook moves ccfacade.Hooks calls off the write path.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{ContentionEvery: 10})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	cs, _ := ccfacade.New(ccfacade.Options{
//	    Project: "census-cc",
//	    Schema:  "cachedcase",
//	    Store:   ds,
//	    Hooks:   hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/ccfacade"
)

type Hooks struct {
	inner   ccfacade.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

var _ ccfacade.Hooks = (*Hooks)(nil)

func New(inner ccfacade.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events sent after Close
// are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped reports how many events were discarded because the queue was full
// or closed.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) ContentionRetry(k string, attempt int, d time.Duration) {
	h.try(func() { h.inner.ContentionRetry(k, attempt, d) })
}
func (h *Hooks) RetriesExhausted(k string, n int) { h.try(func() { h.inner.RetriesExhausted(k, n) }) }
func (h *Hooks) WriteFailed(k string, err error)  { h.try(func() { h.inner.WriteFailed(k, err) }) }
func (h *Hooks) ReadFailed(k string, err error)   { h.try(func() { h.inner.ReadFailed(k, err) }) }
