// Package agent defines the generative-model capabilities the court relies
// on and a Gemini-backed implementation of them.
//
// Two capabilities are used:
//
//   - Agent: given a system prompt, assembled case context, and the action
//     schemas, returns free text and/or a list of action requests. A second
//     round carries the outcomes of those requests back so the model can
//     narrate them.
//   - Summarizer: condenses a window of dialogue plus the running summary
//     into a new running summary.
//
// Replies are validated at the boundary (NewReply) so callers only ever see
// known action names and trimmed text.
package agent

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-court-backend/internal/tools"
)

// ErrEmptyReply is returned when the model produced neither text nor
// action requests.
var ErrEmptyReply = errors.New("agent returned an empty reply")

// Outcome pairs an action request with what applying it produced. A nil
// Result means the action was dropped.
type Outcome struct {
	Call   tools.Call
	Result *tools.Result
}

// Request is one round of the deliberation protocol.
type Request struct {
	SystemPrompt string
	Context      string
	Tools        []tools.Schema

	// Previous and Outcomes are set on the second round only: the reply
	// that proposed actions and the results of applying them.
	Previous *Reply
	Outcomes []Outcome
}

// Reply is the validated result of a Generate call.
type Reply struct {
	Text      string
	ToolCalls []tools.Call
}

// Empty reports whether the reply carries nothing actionable.
func (r Reply) Empty() bool { return r.Text == "" && len(r.ToolCalls) == 0 }

// Agent generates a judge reply for the current case context.
type Agent interface {
	Generate(ctx context.Context, req Request) (Reply, error)
}

// Summarizer condenses recent dialogue into a running summary. transcript
// holds "speaker: message" lines, oldest first.
type Summarizer interface {
	Summarize(ctx context.Context, transcript []string, current string) (string, error)
}

// NewReply validates a raw model reply. Calls naming unknown actions are
// dropped and logged; text is trimmed. It returns ErrEmptyReply when
// nothing usable remains.
func NewReply(text string, calls []tools.Call) (Reply, error) {
	r := Reply{Text: strings.TrimSpace(text)}
	for _, c := range calls {
		name, ok := tools.ParseName(string(c.Name))
		if !ok {
			log.Warn().Str("action", string(c.Name)).Msg("agent requested unknown action; dropped")
			continue
		}
		args := c.Args
		if args == nil {
			args = map[string]string{}
		}
		r.ToolCalls = append(r.ToolCalls, tools.Call{Name: name, Args: args})
	}
	if r.Empty() {
		return Reply{}, ErrEmptyReply
	}
	return r, nil
}

// ErrUnavailable is returned by Unavailable for every call.
var ErrUnavailable = errors.New("agent unavailable")

// Unavailable is the capability used when no model is configured. Every
// turn degrades to the outage message and summaries fall back to the
// placeholder.
type Unavailable struct{}

func (Unavailable) Generate(context.Context, Request) (Reply, error) {
	return Reply{}, ErrUnavailable
}

func (Unavailable) Summarize(context.Context, []string, string) (string, error) {
	return "", ErrUnavailable
}
