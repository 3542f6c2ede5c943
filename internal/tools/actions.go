// Package tools defines the closed set of actions the deliberation agent may
// request against a case.
//
// Each action is its own Go type implementing the sealed Action interface.
// Executors implement one method per action, so adding or removing an
// action breaks every executor at compile time instead of at runtime. Raw
// calls coming from the agent are turned into actions by Parse, which owns
// all argument coercion.
package tools

import (
	"context"
	"errors"
)

// Name identifies an action on the wire.
type Name string

const (
	NameUpdateVerdict   Name = "update_verdict"
	NameAddWitness      Name = "add_witness"
	NameCloseCase       Name = "close_case"
	NameRequestEvidence Name = "request_evidence"
	NameReopenCase      Name = "reopen_case"
)

// Names lists every action in declaration order.
var Names = []Name{
	NameUpdateVerdict,
	NameAddWitness,
	NameCloseCase,
	NameRequestEvidence,
	NameReopenCase,
}

// ParseName maps a wire name onto a known action name.
func ParseName(s string) (Name, bool) {
	for _, n := range Names {
		if string(n) == s {
			return n, true
		}
	}
	return "", false
}

var (
	// ErrUnknownAction is returned by Parse for a name outside Names.
	ErrUnknownAction = errors.New("unknown action")
	// ErrInvalidArgs is returned by Parse when a required argument is
	// missing, empty, or cannot be coerced.
	ErrInvalidArgs = errors.New("invalid action arguments")
)

// Call is a raw action request as the agent emitted it. Every argument is a
// string, matching the declared schemas.
type Call struct {
	Name Name              `json:"name"`
	Args map[string]string `json:"args"`
}

// Result is what an applied action reports back to the agent. A nil *Result
// means the action was dropped (the case vanished or a precondition failed).
type Result struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Success builds the result every action returns when it took effect.
func Success(msg string) *Result {
	return &Result{Status: "success", Message: msg}
}

// Action is one validated request. The set of implementations is closed.
type Action interface {
	// Name is the wire name of the action.
	Name() Name
	// Case is the id of the case the action targets.
	Case() int64
	apply(ctx context.Context, ex Executor) (*Result, error)
}

// Executor carries out actions. A nil result with a nil error drops the
// action; a non-nil error is reserved for persistence failures.
type Executor interface {
	UpdateVerdict(ctx context.Context, a UpdateVerdict) (*Result, error)
	AddWitness(ctx context.Context, a AddWitness) (*Result, error)
	CloseCase(ctx context.Context, a CloseCase) (*Result, error)
	RequestEvidence(ctx context.Context, a RequestEvidence) (*Result, error)
	ReopenCase(ctx context.Context, a ReopenCase) (*Result, error)
}

// Apply dispatches a to the matching Executor method.
func Apply(ctx context.Context, ex Executor, a Action) (*Result, error) {
	return a.apply(ctx, ex)
}

// UpdateVerdict records an advisory verdict without changing status.
type UpdateVerdict struct {
	CaseID  int64
	Verdict string
}

func (UpdateVerdict) Name() Name    { return NameUpdateVerdict }
func (a UpdateVerdict) Case() int64 { return a.CaseID }
func (a UpdateVerdict) apply(ctx context.Context, ex Executor) (*Result, error) {
	return ex.UpdateVerdict(ctx, a)
}

// AddWitness adds a witness participant.
type AddWitness struct {
	CaseID    int64
	WitnessID int64
}

func (AddWitness) Name() Name    { return NameAddWitness }
func (a AddWitness) Case() int64 { return a.CaseID }
func (a AddWitness) apply(ctx context.Context, ex Executor) (*Result, error) {
	return ex.AddWitness(ctx, a)
}

// CloseCase closes an open case with a reason.
type CloseCase struct {
	CaseID int64
	Reason string
}

func (CloseCase) Name() Name    { return NameCloseCase }
func (a CloseCase) Case() int64 { return a.CaseID }
func (a CloseCase) apply(ctx context.Context, ex Executor) (*Result, error) {
	return ex.CloseCase(ctx, a)
}

// RequestEvidence posts an evidence request to the case thread.
type RequestEvidence struct {
	CaseID  int64
	Content string
}

func (RequestEvidence) Name() Name    { return NameRequestEvidence }
func (a RequestEvidence) Case() int64 { return a.CaseID }
func (a RequestEvidence) apply(ctx context.Context, ex Executor) (*Result, error) {
	return ex.RequestEvidence(ctx, a)
}

// ReopenCase reopens a closed case.
type ReopenCase struct {
	CaseID int64
}

func (ReopenCase) Name() Name    { return NameReopenCase }
func (a ReopenCase) Case() int64 { return a.CaseID }
func (a ReopenCase) apply(ctx context.Context, ex Executor) (*Result, error) {
	return ex.ReopenCase(ctx, a)
}
