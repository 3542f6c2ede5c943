package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-court-backend/internal/domain"
)

func TestStateMachine_CloseReopenClose(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.fileCase(t, testCase)

	// A frozen clock still has to yield strictly increasing stamps.
	frozen := c.UpdatedAt
	f.machine.Now = func() time.Time { return frozen }

	prev := c.UpdatedAt
	step := func(name string, fn func() (*domain.Case, error), want domain.CaseStatus) *domain.Case {
		t.Helper()
		got, err := fn()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if got.Status != want {
			t.Fatalf("%s: status=%q want %q", name, got.Status, want)
		}
		if !got.UpdatedAt.After(prev) {
			t.Fatalf("%s: updated_at %v not after %v", name, got.UpdatedAt, prev)
		}
		prev = got.UpdatedAt
		return got
	}

	step("close", func() (*domain.Case, error) { return f.machine.Close(ctx, testCase, "first reason") }, domain.StatusClosed)
	step("reopen", func() (*domain.Case, error) { return f.machine.Reopen(ctx, testCase) }, domain.StatusOpen)
	last := step("close again", func() (*domain.Case, error) { return f.machine.Close(ctx, testCase, "second reason") }, domain.StatusClosed)

	if last.CloseReason != "second reason" {
		t.Fatalf("close reason=%q", last.CloseReason)
	}
	if last.ClosedAt == nil {
		t.Fatalf("closed_at not set")
	}
}

func TestStateMachine_InvalidTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fileCase(t, testCase)

	if _, err := f.machine.Reopen(ctx, testCase); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("reopen open case: want ErrInvalidTransition, got %v", err)
	}
	if _, err := f.machine.Close(ctx, testCase, "done"); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := f.machine.Close(ctx, testCase, "again"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("close closed case: want ErrInvalidTransition, got %v", err)
	}
	if _, err := f.machine.Close(ctx, 424242, "x"); !errors.Is(err, ErrCaseNotFound) {
		t.Fatalf("missing case: want ErrCaseNotFound, got %v", err)
	}
	if _, err := f.machine.Close(ctx, testCase, "   "); !errors.Is(err, ErrEmptyReason) {
		t.Fatalf("blank reason: want ErrEmptyReason, got %v", err)
	}
}

func TestStateMachine_CloseKeepsEarlierVerdict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fileCase(t, testCase)

	if _, err := f.machine.UpdateVerdict(ctx, testCase, "guilty"); err != nil {
		t.Fatalf("verdict: %v", err)
	}
	c, err := f.machine.Close(ctx, testCase, "sentence served")
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if c.Verdict != "guilty" {
		t.Fatalf("verdict overwritten: %q", c.Verdict)
	}
	if c.CloseReason != "sentence served" {
		t.Fatalf("close reason=%q", c.CloseReason)
	}
}

func TestStateMachine_UpdateVerdictAnyState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fileCase(t, testCase)

	if _, err := f.machine.Close(ctx, testCase, "closed"); err != nil {
		t.Fatalf("close: %v", err)
	}
	c, err := f.machine.UpdateVerdict(ctx, testCase, "not guilty")
	if err != nil {
		t.Fatalf("verdict on closed case: %v", err)
	}
	if c.Status != domain.StatusClosed || c.Verdict != "not guilty" {
		t.Fatalf("got status=%q verdict=%q", c.Status, c.Verdict)
	}
}
