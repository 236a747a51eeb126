package genstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestLocalSnapshotMissingIsZero(t *testing.T) {
	ctx := context.Background()
	s := NewLocalGenStore(0, 0)
	t.Cleanup(func() { _ = s.Close(ctx) })

	g, err := s.Snapshot(ctx, "doc:c:1")
	if err != nil {
		t.Fatal(err)
	}
	if g != 0 {
		t.Fatalf("expected 0 for missing key, got %d", g)
	}
}

func TestLocalCompareAndBump(t *testing.T) {
	ctx := context.Background()
	s := NewLocalGenStore(0, 0)
	t.Cleanup(func() { _ = s.Close(ctx) })

	next, ok, err := s.CompareAndBump(ctx, "k", 0)
	if err != nil || !ok || next != 1 {
		t.Fatalf("first CAB: next=%d ok=%v err=%v", next, ok, err)
	}

	// stale observation loses and leaves the generation untouched
	if _, ok, err := s.CompareAndBump(ctx, "k", 0); err != nil || ok {
		t.Fatalf("stale CAB should lose: ok=%v err=%v", ok, err)
	}
	if g, _ := s.Snapshot(ctx, "k"); g != 1 {
		t.Fatalf("gen after lost CAB = %d, want 1", g)
	}

	next, ok, err = s.CompareAndBump(ctx, "k", 1)
	if err != nil || !ok || next != 2 {
		t.Fatalf("fresh CAB: next=%d ok=%v err=%v", next, ok, err)
	}
}

func TestLocalCompareAndBumpSingleWinner(t *testing.T) {
	ctx := context.Background()
	s := NewLocalGenStore(0, 0)
	t.Cleanup(func() { _ = s.Close(ctx) })

	const writers = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	start := make(chan struct{})
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, ok, _ := s.CompareAndBump(ctx, "hot", 0); ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	close(start)
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one winner from gen 0, got %d", wins)
	}
}

func TestLocalCommit(t *testing.T) {
	ctx := context.Background()
	s := NewLocalGenStore(0, 0)
	t.Cleanup(func() { _ = s.Close(ctx) })

	var wrote uint64
	next, ok, err := s.Commit(ctx, "k", 0, func(_ context.Context, n uint64) error {
		wrote = n
		return nil
	})
	if err != nil || !ok || next != 1 || wrote != 1 {
		t.Fatalf("commit: next=%d ok=%v err=%v wrote=%d", next, ok, err, wrote)
	}

	called := false
	if _, ok, _ := s.Commit(ctx, "k", 0, func(context.Context, uint64) error { called = true; return nil }); ok || called {
		t.Fatalf("stale commit: ok=%v write called=%v", ok, called)
	}

	boom := errors.New("set failed")
	if _, ok, err := s.Commit(ctx, "k", 1, func(context.Context, uint64) error { return boom }); ok || !errors.Is(err, boom) {
		t.Fatalf("failed write: ok=%v err=%v", ok, err)
	}
	if g, _ := s.Snapshot(ctx, "k"); g != 1 {
		t.Fatalf("failed write advanced the generation to %d", g)
	}
}

func TestLocalCommitHoldsKey(t *testing.T) {
	ctx := context.Background()
	s := NewLocalGenStore(0, 0)
	t.Cleanup(func() { _ = s.Close(ctx) })

	inWrite := make(chan struct{})
	release := make(chan struct{})
	done := make(chan bool, 1)
	go func() {
		_, ok, _ := s.Commit(ctx, "k", 0, func(context.Context, uint64) error {
			close(inWrite)
			<-release
			return nil
		})
		done <- ok
	}()
	<-inWrite

	if _, ok, _ := s.Commit(ctx, "k", 0, func(context.Context, uint64) error { return nil }); ok {
		t.Fatalf("second commit must lose while the key is held")
	}
	if _, ok, _ := s.CompareAndBump(ctx, "k", 0); ok {
		t.Fatalf("CompareAndBump must lose while the key is held")
	}
	// other keys are unaffected
	if _, ok, _ := s.Commit(ctx, "other", 0, func(context.Context, uint64) error { return nil }); !ok {
		t.Fatalf("unrelated key blocked")
	}

	close(release)
	if !<-done {
		t.Fatalf("holder lost its commit")
	}
	if g, _ := s.Snapshot(ctx, "k"); g != 1 {
		t.Fatalf("gen = %d, want 1", g)
	}
}

func TestLocalCleanupPrunesOld(t *testing.T) {
	ctx := context.Background()
	s := NewLocalGenStore(0, time.Second)
	t.Cleanup(func() { _ = s.Close(ctx) })

	if _, _, err := s.CompareAndBump(ctx, "old", 0); err != nil {
		t.Fatal(err)
	}
	time.Sleep(1200 * time.Millisecond)
	s.Cleanup(time.Second)

	g, err := s.Snapshot(ctx, "old")
	if err != nil {
		t.Fatal(err)
	}
	if g != 0 {
		t.Fatalf("expected pruned -> 0, got %d", g)
	}
}

func TestLocalCloseIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewLocalGenStore(10*time.Millisecond, time.Minute)
	if err := s.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(ctx); err != nil {
		t.Fatal(err)
	}
}
