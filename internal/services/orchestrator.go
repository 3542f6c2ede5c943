// Package services – Orchestrator
//
// Orchestrator runs one deliberation cycle per inbound dialogue turn:
//
//  1. serialize on the case (turns for different cases run in parallel)
//  2. log the inbound message
//  3. ask the agent for a reply given the assembled case context
//  4. apply any requested actions and ask the agent to narrate them
//  5. deliver the reply in the thread and log it as the judge's entry
//  6. summarize when enough dialogue accumulated, then refresh the header
//
// The inbound entry is stored before the agent is called, so an agent
// failure or timeout loses no history; the thread gets the fixed outage
// message instead of a reply. From then on the turn ignores the caller's
// cancellation so a dropped connection cannot leave a delivered reply
// missing from the log.
package services

import (
	"context"
	"errors"
	"time"

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

// OutageMessage is sent when the agent cannot answer a turn.
const OutageMessage = "Order! There seems to be a disruption in the court's communication system. Please try again later."

const (
	defaultAgentTimeout = 30 * time.Second
	judgeSpeaker        = "Judge"
)

// Reasons a turn is ignored.
const (
	IgnoredBot       = "bot"
	IgnoredClosed    = "closed"
	IgnoredDuplicate = "duplicate"
)

// Turn is one inbound dialogue message.
type Turn struct {
	CaseID     int64     `json:"case_id"`
	AuthorID   int64     `json:"author_id"`
	AuthorName string    `json:"author_name"`
	IsBot      bool      `json:"is_bot"`
	MessageID  int64     `json:"message_id"`
	ReplyTo    *int64    `json:"reply_to,omitempty"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
}

// TurnResult reports what a turn did. Ignored is set (and nothing else)
// when the turn was skipped.
type TurnResult struct {
	Ignored        string          `json:"ignored,omitempty"`
	Reply          string          `json:"reply,omitempty"`
	ReplyMessageID int64           `json:"reply_message_id,omitempty"`
	Outage         bool            `json:"outage,omitempty"`
	Outcomes       []agent.Outcome `json:"outcomes,omitempty"`
	Summarized     bool            `json:"summarized,omitempty"`
}

// Orchestrator wires the per-turn deliberation loop.
type Orchestrator struct {
	DB         *gorm.DB
	Locks      *CaseLocks
	Logs       *LogManager
	Context    *ContextBuilder
	Agent      agent.Agent
	Dispatcher *Dispatcher
	Summaries  *SummaryScheduler
	Headers    *HeaderReconciler
	Messenger  messenger.Messenger

	SystemPrompt string
	// Timeout bounds each agent round.
	Timeout time.Duration
	// JudgeID is the author id recorded on the judge's log entries.
	JudgeID int64
}

func (o *Orchestrator) timeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return defaultAgentTimeout
}

// OnDialogueTurn handles one inbound message. Only persistence failures
// are returned as errors; agent and delivery failures degrade in place.
func (o *Orchestrator) OnDialogueTurn(ctx context.Context, t Turn) (*TurnResult, error) {
	ctx, span := otel.Tracer("services/Orchestrator").Start(ctx, "OnDialogueTurn",
		trace.WithAttributes(
			attribute.Int64("case.id", t.CaseID),
			attribute.Int64("message.id", t.MessageID),
		),
	)
	defer span.End()

	release, err := o.Locks.Acquire(ctx, t.CaseID)
	if err != nil {
		return nil, err
	}
	defer release()

	c, err := repo.GetCase(ctx, o.DB, t.CaseID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCaseNotFound
	}
	if err := learnNames(ctx, o.DB, map[int64]string{t.AuthorID: t.AuthorName}); err != nil {
		return nil, err
	}

	if t.IsBot {
		turns.WithLabelValues("ignored").Inc()
		return &TurnResult{Ignored: IgnoredBot}, nil
	}
	if c.Status == domain.StatusClosed {
		turns.WithLabelValues("ignored").Inc()
		return &TurnResult{Ignored: IgnoredClosed}, nil
	}

	speaker, err := displayNames(ctx, o.DB, t.AuthorID)
	if err != nil {
		return nil, err
	}
	inbound := &domain.LogEntry{
		CaseID:      t.CaseID,
		Timestamp:   t.Timestamp.UTC(),
		AuthorID:    t.AuthorID,
		Speaker:     speaker[0],
		Content:     t.Text,
		MessageID:   t.MessageID,
		ReferenceID: t.ReplyTo,
	}
	if err := o.Logs.Append(ctx, inbound); err != nil {
		if errors.Is(err, ErrDuplicateTurn) {
			turns.WithLabelValues("ignored").Inc()
			return &TurnResult{Ignored: IgnoredDuplicate}, nil
		}
		return nil, err
	}
	// The inbound entry is stored; the rest of the turn must land in the
	// log even if the caller hangs up. Agent rounds keep their own timeout.
	ctx = context.WithoutCancel(ctx)

	res := &TurnResult{}
	text, outcomes, err := o.deliberate(ctx, t.CaseID)
	if err != nil {
		return nil, err
	}
	res.Outcomes = outcomes
	if text == "" {
		text = OutageMessage
		res.Outage = true
	}
	res.Reply = Trim(text, o.Headers.maxRunes())

	replyTo := t.MessageID
	sent, err := o.Messenger.SendMessage(ctx, t.CaseID, res.Reply, &replyTo)
	switch {
	case err != nil:
		log.Warn().Err(err).Int64("case_id", t.CaseID).Msg("reply not delivered")
	case !res.Outage:
		res.ReplyMessageID = sent
		judge := &domain.LogEntry{
			CaseID:      t.CaseID,
			AuthorID:    o.JudgeID,
			Speaker:     judgeSpeaker,
			Content:     res.Reply,
			MessageID:   sent,
			ReferenceID: &replyTo,
			IsJudge:     true,
		}
		if err := o.Logs.Append(ctx, judge); err != nil && !errors.Is(err, ErrDuplicateTurn) {
			return nil, err
		}
	default:
		res.ReplyMessageID = sent
	}

	if res.Outage {
		turns.WithLabelValues("outage").Inc()
	} else {
		turns.WithLabelValues("answered").Inc()
	}

	summarized, err := o.Summaries.MaybeSummarize(ctx, t.CaseID)
	if err != nil {
		log.Error().Err(err).Int64("case_id", t.CaseID).Msg("summary run failed")
	}
	res.Summarized = summarized
	if err := o.Headers.Reconcile(ctx, t.CaseID); err != nil {
		log.Warn().Err(err).Int64("case_id", t.CaseID).Msg("header reconcile failed")
	}
	return res, nil
}

// deliberate runs the two-round agent protocol. An empty text means the
// agent could not answer. The error is non-nil only when applying actions
// hit the store.
func (o *Orchestrator) deliberate(ctx context.Context, caseID int64) (string, []agent.Outcome, error) {
	contextText, err := o.Context.Build(ctx, caseID)
	if err != nil {
		return "", nil, err
	}
	req := agent.Request{
		SystemPrompt: o.SystemPrompt,
		Context:      contextText,
		Tools:        tools.Schemas(),
	}

	first, err := o.generate(ctx, "1", req)
	if err != nil {
		log.Warn().Err(err).Int64("case_id", caseID).Msg("agent did not answer")
		return "", nil, nil
	}
	if len(first.ToolCalls) == 0 {
		return first.Text, nil, nil
	}

	outcomes, err := o.Dispatcher.Dispatch(ctx, caseID, first.ToolCalls)
	if err != nil {
		return "", outcomes, err
	}

	req.Previous = &first
	req.Outcomes = outcomes
	second, err := o.generate(ctx, "2", req)
	if err != nil || second.Text == "" {
		log.Warn().Err(err).Int64("case_id", caseID).Msg("agent did not narrate actions; using first reply")
		return first.Text, outcomes, nil
	}
	return second.Text, outcomes, nil
}

// generate calls the agent under the per-round timeout.
func (o *Orchestrator) generate(ctx context.Context, round string, req agent.Request) (agent.Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout())
	defer cancel()

	start := time.Now()
	reply, err := o.Agent.Generate(ctx, req)
	agentLat.WithLabelValues(round).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		agentCalls.WithLabelValues(round, "ok").Inc()
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		agentCalls.WithLabelValues(round, "timeout").Inc()
	default:
		agentCalls.WithLabelValues(round, "error").Inc()
	}
	return reply, err
}
