package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var errBusy = errors.New("busy")

func isBusy(err error) bool { return errors.Is(err, errBusy) }

func fastPolicy(attempts int) Policy {
	return Policy{
		InitialDelay: time.Millisecond,
		Multiplier:   2,
		MaxDelay:     3 * time.Millisecond,
		MaxAttempts:  attempts,
	}
}

func TestDelayScheduleIsCappedAndNonDecreasing(t *testing.T) {
	p := Policy{InitialDelay: 100 * time.Millisecond, Multiplier: 2, MaxDelay: time.Second, MaxAttempts: 8}
	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		time.Second,
		time.Second,
	}
	prev := time.Duration(0)
	for i, w := range want {
		got := p.Delay(i + 1)
		if got != w {
			t.Fatalf("Delay(%d) = %v, want %v", i+1, got, w)
		}
		if got < prev {
			t.Fatalf("Delay(%d) decreased: %v < %v", i+1, got, prev)
		}
		prev = got
	}
}

func TestDelayMatchesBackoffSequence(t *testing.T) {
	p := Policy{InitialDelay: 50 * time.Millisecond, Multiplier: 1.5, MaxDelay: 400 * time.Millisecond, MaxAttempts: 10}
	b := p.backOff()
	for n := 1; n < p.MaxAttempts; n++ {
		got := b.NextBackOff()
		if got != p.Delay(n) {
			t.Fatalf("backoff step %d = %v, Delay = %v", n, got, p.Delay(n))
		}
	}
	if b.NextBackOff() != backoff.Stop {
		t.Fatalf("expected Stop after MaxAttempts-1 waits")
	}
}

func TestBudget(t *testing.T) {
	p := Policy{InitialDelay: 100 * time.Millisecond, Multiplier: 2, MaxDelay: time.Second, MaxAttempts: 3}
	if got := p.Budget(); got != 300*time.Millisecond {
		t.Fatalf("Budget = %v, want 300ms", got)
	}
	if got := (Policy{}).Budget(); got != 0 {
		t.Fatalf("zero policy budget = %v", got)
	}
}

func TestDoRetriesUntilExhausted(t *testing.T) {
	calls := 0
	var notified []int
	n, err := Do(context.Background(), fastPolicy(3), isBusy, func(context.Context) error {
		calls++
		return errBusy
	}, func(attempt int, _ time.Duration, _ error) {
		notified = append(notified, attempt)
	})

	if calls != 3 || n != 3 {
		t.Fatalf("calls=%d attempts=%d, want 3", calls, n)
	}
	var ex *ExhaustedError
	if !errors.As(err, &ex) || ex.Attempts != 3 {
		t.Fatalf("expected ExhaustedError{3}, got %v", err)
	}
	if !errors.Is(err, errBusy) {
		t.Fatalf("exhausted error must keep its kind: %v", err)
	}
	if len(notified) != 2 || notified[0] != 1 || notified[1] != 2 {
		t.Fatalf("notify attempts = %v, want [1 2]", notified)
	}
}

func TestDoSucceedsOnSecondAttempt(t *testing.T) {
	calls := 0
	n, err := Do(context.Background(), fastPolicy(3), isBusy, func(context.Context) error {
		calls++
		if calls == 1 {
			return errBusy
		}
		return nil
	}, nil)
	if err != nil || calls != 2 || n != 2 {
		t.Fatalf("err=%v calls=%d attempts=%d", err, calls, n)
	}
}

func TestDoDoesNotRetryOtherErrors(t *testing.T) {
	boom := errors.New("disk on fire")
	calls := 0
	n, err := Do(context.Background(), fastPolicy(5), isBusy, func(context.Context) error {
		calls++
		return boom
	}, nil)
	if calls != 1 || n != 1 {
		t.Fatalf("calls=%d attempts=%d, want 1", calls, n)
	}
	if err != boom {
		t.Fatalf("expected the original error, got %v", err)
	}
}

func TestDoNotifyDelaysFollowPolicy(t *testing.T) {
	p := fastPolicy(4)
	var delays []time.Duration
	_, _ = Do(context.Background(), p, isBusy, func(context.Context) error { return errBusy },
		func(_ int, d time.Duration, _ error) { delays = append(delays, d) })

	if len(delays) != 3 {
		t.Fatalf("got %d delays, want 3", len(delays))
	}
	for i, d := range delays {
		if d != p.Delay(i+1) {
			t.Fatalf("delay %d = %v, want %v", i+1, d, p.Delay(i+1))
		}
	}
}

func TestDoSingleAttemptPolicy(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Policy{}, isBusy, func(context.Context) error {
		calls++
		return errBusy
	}, nil)
	if calls != 1 {
		t.Fatalf("zero policy should make exactly one attempt, made %d", calls)
	}
	if !errors.Is(err, errBusy) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDoStopsWaitingWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{InitialDelay: time.Hour, Multiplier: 2, MaxDelay: time.Hour, MaxAttempts: 3}

	calls := 0
	done := make(chan error, 1)
	go func() {
		_, err := Do(ctx, p, isBusy, func(context.Context) error {
			calls++
			return errBusy
		}, func(int, time.Duration, error) { cancel() })
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if calls != 1 {
			t.Fatalf("calls=%d, want 1", calls)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Do did not return after cancel")
	}
}
