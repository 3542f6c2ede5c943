// Package services – Dispatcher
//
// Dispatcher applies the actions an agent requested during one turn. Each
// request is parsed into a typed tools.Action and applied on its own: a
// malformed request, a missing case, or an illegal transition drops that
// one action (nil result) and the batch continues. Only persistence
// failures abort the batch.
//
// Thread side effects (header edit, notices, lock/unlock) are best-effort
// and logged; they never undo the state change that preceded them.
package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-court-backend/internal/agent"
	"github.com/tbourn/go-court-backend/internal/domain"
	"github.com/tbourn/go-court-backend/internal/messenger"
	"github.com/tbourn/go-court-backend/internal/repo"
	"github.com/tbourn/go-court-backend/internal/tools"
)

// CloseNotice is posted to the thread when a case closes.
func CloseNotice(reason string) string {
	return "The case has been closed due to the following reason: " + reason + "\nCourt is adjourned!"
}

// Dispatcher executes agent actions against the store and the thread.
type Dispatcher struct {
	DB        *gorm.DB
	Machine   *StateMachine
	Headers   *HeaderReconciler
	Messenger messenger.Messenger
}

var _ tools.Executor = (*Dispatcher)(nil)

// dropped reports errors that drop a single action instead of failing
// the batch.
func dropped(err error) bool {
	return errors.Is(err, ErrCaseNotFound) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrEmptyReason)
}

// Dispatch applies calls in order. When scope is non-zero, actions that
// target another case are dropped. The returned outcomes line up with
// calls; a nil Result marks a dropped action.
func (d *Dispatcher) Dispatch(ctx context.Context, scope int64, calls []tools.Call) ([]agent.Outcome, error) {
	ctx, span := otel.Tracer("services/Dispatcher").Start(ctx, "Dispatch",
		trace.WithAttributes(
			attribute.Int64("case.id", scope),
			attribute.Int("calls", len(calls)),
		),
	)
	defer span.End()

	out := make([]agent.Outcome, 0, len(calls))
	for _, c := range calls {
		o := agent.Outcome{Call: c}
		a, err := tools.Parse(c)
		if err != nil {
			log.Warn().Err(err).Str("action", string(c.Name)).Int64("case_id", scope).Msg("action dropped: bad arguments")
			toolCalls.WithLabelValues(string(c.Name), "invalid").Inc()
			out = append(out, o)
			continue
		}
		if scope != 0 && a.Case() != scope {
			log.Warn().Str("action", string(a.Name())).Int64("case_id", scope).Int64("target_case_id", a.Case()).
				Msg("action dropped: targets another case")
			toolCalls.WithLabelValues(string(a.Name()), "dropped").Inc()
			out = append(out, o)
			continue
		}

		res, err := tools.Apply(ctx, d, a)
		if err != nil {
			toolCalls.WithLabelValues(string(a.Name()), "error").Inc()
			return out, err
		}
		if res == nil {
			toolCalls.WithLabelValues(string(a.Name()), "dropped").Inc()
		} else {
			toolCalls.WithLabelValues(string(a.Name()), "applied").Inc()
		}
		o.Result = res
		out = append(out, o)
	}
	return out, nil
}

// reconcile pushes the header and logs why it could not.
func (d *Dispatcher) reconcile(ctx context.Context, caseID int64) {
	if err := d.Headers.Reconcile(ctx, caseID); err != nil {
		log.Warn().Err(err).Int64("case_id", caseID).Msg("header reconcile failed")
	}
}

// Close closes a case, refreshes its header, posts the closing notice and
// locks the thread.
func (d *Dispatcher) Close(ctx context.Context, caseID int64, reason string) (*domain.Case, error) {
	c, err := d.Machine.Close(ctx, caseID, reason)
	if err != nil {
		return nil, err
	}
	d.reconcile(ctx, caseID)
	if _, err := d.Messenger.SendMessage(ctx, caseID, Trim(CloseNotice(c.CloseReason), d.Headers.maxRunes()), nil); err != nil {
		log.Warn().Err(err).Int64("case_id", caseID).Msg("close notice not delivered")
	}
	if err := d.Messenger.LockThread(ctx, caseID); err != nil {
		log.Warn().Err(err).Int64("case_id", caseID).Msg("thread lock failed")
	}
	return c, nil
}

// Reopen reopens a case, refreshes its header and unlocks the thread.
func (d *Dispatcher) Reopen(ctx context.Context, caseID int64) (*domain.Case, error) {
	c, err := d.Machine.Reopen(ctx, caseID)
	if err != nil {
		return nil, err
	}
	d.reconcile(ctx, caseID)
	if err := d.Messenger.UnlockThread(ctx, caseID); err != nil {
		log.Warn().Err(err).Int64("case_id", caseID).Msg("thread unlock failed")
	}
	return c, nil
}

func (d *Dispatcher) UpdateVerdict(ctx context.Context, a tools.UpdateVerdict) (*tools.Result, error) {
	if _, err := d.Machine.UpdateVerdict(ctx, a.CaseID, a.Verdict); err != nil {
		if dropped(err) {
			return nil, nil
		}
		return nil, err
	}
	d.reconcile(ctx, a.CaseID)
	return tools.Success("Verdict updated and case message edited."), nil
}

func (d *Dispatcher) AddWitness(ctx context.Context, a tools.AddWitness) (*tools.Result, error) {
	err := d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := repo.GetCase(ctx, tx, a.CaseID)
		if err != nil {
			return err
		}
		if c == nil {
			return ErrCaseNotFound
		}
		if err := repo.AddParticipants(ctx, tx, a.CaseID, domain.RoleWitness, a.WitnessID); err != nil {
			return err
		}
		return d.Machine.Touch(ctx, tx, c)
	})
	if err != nil {
		if dropped(err) {
			return nil, nil
		}
		return nil, err
	}
	return tools.Success("Witness added to the case."), nil
}

func (d *Dispatcher) CloseCase(ctx context.Context, a tools.CloseCase) (*tools.Result, error) {
	if _, err := d.Close(ctx, a.CaseID, a.Reason); err != nil {
		if dropped(err) {
			return nil, nil
		}
		return nil, err
	}
	return tools.Success("Case closed and message updated."), nil
}

func (d *Dispatcher) RequestEvidence(ctx context.Context, a tools.RequestEvidence) (*tools.Result, error) {
	c, err := repo.GetCase(ctx, d.DB, a.CaseID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, nil
	}
	if _, err := d.Messenger.SendMessage(ctx, a.CaseID, Trim(a.Content, d.Headers.maxRunes()), nil); err != nil {
		log.Warn().Err(err).Int64("case_id", a.CaseID).Msg("evidence request not delivered")
		return nil, nil
	}
	return tools.Success(""), nil
}

func (d *Dispatcher) ReopenCase(ctx context.Context, a tools.ReopenCase) (*tools.Result, error) {
	if _, err := d.Reopen(ctx, a.CaseID); err != nil {
		if dropped(err) {
			return nil, nil
		}
		return nil, err
	}
	return tools.Success("Case reopened and message updated."), nil
}
