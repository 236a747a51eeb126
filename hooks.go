package ccfacade

import "time"

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking; Store calls them inline.
// key is the canonical UPRN.
type Hooks interface {
	// A write lost to a concurrent writer and will be retried after delay.
	ContentionRetry(key string, attempt int, delay time.Duration)

	// Every attempt was contended; Store is returning ErrContention.
	RetriesExhausted(key string, attempts int)

	// A write failed with a non-contention error (not retried).
	WriteFailed(key string, err error)

	// A point read failed with an I/O error (misses are not reported).
	ReadFailed(key string, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) ContentionRetry(string, int, time.Duration) {}
func (NopHooks) RetriesExhausted(string, int)               {}
func (NopHooks) WriteFailed(string, error)                  {}
func (NopHooks) ReadFailed(string, error)                   {}

// MultiHooks fans every event out to each element in order.
type MultiHooks []Hooks

func (m MultiHooks) ContentionRetry(k string, attempt int, d time.Duration) {
	for _, h := range m {
		h.ContentionRetry(k, attempt, d)
	}
}

func (m MultiHooks) RetriesExhausted(k string, n int) {
	for _, h := range m {
		h.RetriesExhausted(k, n)
	}
}

func (m MultiHooks) WriteFailed(k string, err error) {
	for _, h := range m {
		h.WriteFailed(k, err)
	}
}

func (m MultiHooks) ReadFailed(k string, err error) {
	for _, h := range m {
		h.ReadFailed(k, err)
	}
}
