// Package sloghooks reports ccfacade.Hooks events through log/slog, with
// sampling for the noisy contention path and redacted keys.
package sloghooks

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/ccfacade"
	"github.com/unkn0wn-root/ccfacade/internal/util"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	ContentionEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	contentionCtr atomic.Uint64
}

var _ ccfacade.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	return util.Redact(k)
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) ContentionRetry(key string, attempt int, delay time.Duration) {
	if h.l == nil || !sample(h.opts.ContentionEvery, &h.contentionCtr) {
		return
	}
	h.l.Debug("ccfacade.contention_retry",
		"key", h.redact(key),
		"attempt", attempt,
		"delay", delay)
}

func (h *Hooks) RetriesExhausted(key string, attempts int) {
	if h.l == nil {
		return
	}
	h.l.Warn("ccfacade.retries_exhausted",
		"key", h.redact(key),
		"attempts", attempts)
}

func (h *Hooks) WriteFailed(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("ccfacade.write_failed",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) ReadFailed(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("ccfacade.read_failed",
		"key", h.redact(key),
		"err", err)
}
