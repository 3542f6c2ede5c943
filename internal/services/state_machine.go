// Package services – StateMachine
//
// StateMachine owns case status transitions and the verdict/close-reason
// fields:
//
//	Open   --Close(reason)--> Closed
//	Closed --Reopen-------->  Open
//
// Appealed is reserved and has no transition; an appeal is filed as a new
// case linked to the original. UpdateVerdict leaves status alone and is
// accepted in any state. Every mutation moves updated_at strictly forward.
//
// The machine only writes state. Header reconciliation and thread side
// effects are the caller's job (see Dispatcher).
package services

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-court-backend/internal/domain"
	"github.com/tbourn/go-court-backend/internal/repo"
)

// StateMachine applies status and verdict changes to cases.
type StateMachine struct {
	DB *gorm.DB
	// Now is the clock; nil means time.Now in UTC.
	Now func() time.Time
}

// NewStateMachine constructs a StateMachine on db with the wall clock.
func NewStateMachine(db *gorm.DB) *StateMachine {
	return &StateMachine{DB: db}
}

func (m *StateMachine) now() time.Time {
	if m.Now != nil {
		return m.Now().UTC()
	}
	return time.Now().UTC()
}

// stamp returns a timestamp strictly after prev.
func (m *StateMachine) stamp(prev time.Time) time.Time {
	t := m.now()
	if !t.After(prev) {
		t = prev.Add(time.Microsecond)
	}
	return t
}

// Close moves an open case to Closed. The verdict takes reason only when
// no verdict has been recorded, so a ruling logged earlier survives.
func (m *StateMachine) Close(ctx context.Context, caseID int64, reason string) (*domain.Case, error) {
	ctx, span := otel.Tracer("services/StateMachine").Start(ctx, "Close",
		trace.WithAttributes(attribute.Int64("case.id", caseID)),
	)
	defer span.End()

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrEmptyReason
	}
	return m.transition(ctx, caseID, func(c *domain.Case, at time.Time) (repo.CasePatch, error) {
		if c.Status != domain.StatusOpen {
			return repo.CasePatch{}, ErrInvalidTransition
		}
		closed := domain.StatusClosed
		p := repo.CasePatch{
			Status:      &closed,
			CloseReason: &reason,
			ClosedAt:    &at,
		}
		if c.Verdict == "" {
			p.Verdict = &reason
		}
		return p, nil
	})
}

// Reopen moves a closed case back to Open. Close reason and time are kept
// as history.
func (m *StateMachine) Reopen(ctx context.Context, caseID int64) (*domain.Case, error) {
	ctx, span := otel.Tracer("services/StateMachine").Start(ctx, "Reopen",
		trace.WithAttributes(attribute.Int64("case.id", caseID)),
	)
	defer span.End()

	return m.transition(ctx, caseID, func(c *domain.Case, _ time.Time) (repo.CasePatch, error) {
		if c.Status != domain.StatusClosed {
			return repo.CasePatch{}, ErrInvalidTransition
		}
		open := domain.StatusOpen
		return repo.CasePatch{Status: &open}, nil
	})
}

// UpdateVerdict records verdict text without touching status.
func (m *StateMachine) UpdateVerdict(ctx context.Context, caseID int64, verdict string) (*domain.Case, error) {
	ctx, span := otel.Tracer("services/StateMachine").Start(ctx, "UpdateVerdict",
		trace.WithAttributes(attribute.Int64("case.id", caseID)),
	)
	defer span.End()

	verdict = strings.TrimSpace(verdict)
	return m.transition(ctx, caseID, func(*domain.Case, time.Time) (repo.CasePatch, error) {
		return repo.CasePatch{Verdict: &verdict}, nil
	})
}

// Touch bumps updated_at after edits made outside the machine.
func (m *StateMachine) Touch(ctx context.Context, tx *gorm.DB, c *domain.Case) error {
	at := m.stamp(c.UpdatedAt)
	if err := repo.UpdateCase(ctx, tx, c.ID, repo.CasePatch{UpdatedAt: &at}); err != nil {
		return err
	}
	c.UpdatedAt = at
	return nil
}

// transition reads the case, asks change for a patch, and writes it with a
// fresh updated_at, all in one transaction. A missing case is
// ErrCaseNotFound.
func (m *StateMachine) transition(ctx context.Context, caseID int64, change func(*domain.Case, time.Time) (repo.CasePatch, error)) (*domain.Case, error) {
	var out *domain.Case
	err := m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := repo.GetCase(ctx, tx, caseID)
		if err != nil {
			return err
		}
		if c == nil {
			return ErrCaseNotFound
		}
		at := m.stamp(c.UpdatedAt)
		p, err := change(c, at)
		if err != nil {
			return err
		}
		p.UpdatedAt = &at
		if err := repo.UpdateCase(ctx, tx, caseID, p); err != nil {
			return err
		}
		out, err = repo.GetCase(ctx, tx, caseID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
