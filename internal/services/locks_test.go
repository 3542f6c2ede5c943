package services

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCaseLocks_SerializesSameCase(t *testing.T) {
	l := NewCaseLocks()
	ctx := context.Background()

	release, err := l.Acquire(ctx, 1)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	// Another case is independent.
	other, err := l.Acquire(ctx, 2)
	if err != nil {
		t.Fatalf("acquire other: %v", err)
	}
	other()

	tctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err := l.Acquire(tctx, 1); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline exceeded, got %v", err)
	}

	got := make(chan struct{})
	go func() {
		r, err := l.Acquire(ctx, 1)
		if err == nil {
			r()
		}
		close(got)
	}()
	release()
	release() // second call is a no-op
	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatalf("waiter never acquired")
	}
	if n := l.Len(); n != 0 {
		t.Fatalf("table not drained: %d", n)
	}
}
