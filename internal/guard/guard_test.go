package guard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDoCollapsesConcurrentCalls(t *testing.T) {
	g := New()

	var calls atomic.Int32
	release := make(chan struct{})

	const workers = 8
	var wg sync.WaitGroup
	results := make([]any, workers)
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			results[n], _, errs[n] = g.Do(context.Background(), "user-42", func() (any, error) {
				calls.Add(1)
				<-release
				return "token", nil
			})
		}(i)
	}

	// Give every goroutine a chance to join the flight before releasing.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("fn ran %d times, want 1", got)
	}
	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d error: %v", i, errs[i])
		}
		if results[i] != "token" {
			t.Fatalf("worker %d result = %v, want token", i, results[i])
		}
	}
}

func TestDoDistinctKeysRunIndependently(t *testing.T) {
	g := New()

	var calls atomic.Int32
	var wg sync.WaitGroup
	for _, key := range []string{"user-1", "user-2", "user-3"} {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			_, _, err := g.Do(context.Background(), key, func() (any, error) {
				calls.Add(1)
				return key, nil
			})
			if err != nil {
				t.Errorf("Do(%s) error: %v", key, err)
			}
		}(key)
	}
	wg.Wait()

	if got := calls.Load(); got != 3 {
		t.Fatalf("fn ran %d times, want 3", got)
	}
}

func TestDoPropagatesError(t *testing.T) {
	g := New()

	want := errors.New("boom")
	_, _, err := g.Do(context.Background(), "k", func() (any, error) {
		return nil, want
	})
	if !errors.Is(err, want) {
		t.Fatalf("got %v, want %v", err, want)
	}
}

func TestDoHonorsContextCancellation(t *testing.T) {
	g := New()

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)

	go func() {
		<-started
		cancel()
	}()

	_, _, err := g.Do(ctx, "slow", func() (any, error) {
		close(started)
		<-release
		return nil, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

func TestForget(t *testing.T) {
	g := New()

	var calls atomic.Int32
	run := func() {
		_, _, _ = g.Do(context.Background(), "k", func() (any, error) {
			calls.Add(1)
			return nil, nil
		})
	}

	run()
	g.Forget("k")
	run()

	if got := calls.Load(); got != 2 {
		t.Fatalf("fn ran %d times, want 2", got)
	}
}
