package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tbourn/go-court-backend/internal/repo"
	"github.com/tbourn/go-court-backend/internal/tools"
)

const defaultDialogueWindow = 24

// ContextBuilder assembles the text the agent deliberates over.
type ContextBuilder struct {
	Headers *HeaderReconciler
	Logs    *LogManager
	// Window is how many recent log entries are included.
	Window int
}

// Build renders the context for a case. Evidence without a summary is
// skipped.
func (b *ContextBuilder) Build(ctx context.Context, caseID int64) (string, error) {
	h, err := b.Headers.Load(ctx, caseID)
	if err != nil {
		return "", err
	}
	evidence, err := repo.ListEvidence(ctx, b.Headers.DB, caseID)
	if err != nil {
		return "", err
	}
	window := b.Window
	if window <= 0 {
		window = defaultDialogueWindow
	}
	recent, err := b.Logs.Window(ctx, caseID, window)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(RenderHeader(h))

	sb.WriteString("\n\nCase Summary:\n")
	sb.WriteString(h.Case.Summary)

	sb.WriteString("\n\nEvidence Summaries:\n")
	for _, ev := range evidence {
		if ev.Summary == "" {
			continue
		}
		fmt.Fprintf(&sb, "%s: Summary: %s\n", ev.Filename, ev.Summary)
	}

	sb.WriteString("\nRecent Dialogue:\n")
	for _, line := range Transcript(recent) {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}

	accused := make([]string, len(h.AccusedIDs))
	for i, id := range h.AccusedIDs {
		accused[i] = strconv.FormatInt(id, 10)
	}
	verdict := h.Case.Verdict
	if verdict == "" {
		verdict = "No verdict yet."
	}
	names := make([]string, len(tools.Names))
	for i, n := range tools.Names {
		names[i] = string(n)
	}

	fmt.Fprintf(&sb, "\nCase ID: %d\n", caseID)
	fmt.Fprintf(&sb, "Accuser ID: %d\n", h.AccuserID)
	fmt.Fprintf(&sb, "Accused IDs: %s\n", strings.Join(accused, ", "))
	fmt.Fprintf(&sb, "Current Verdict: %s\n", verdict)
	fmt.Fprintf(&sb, "Available functions: %s\n", strings.Join(names, ", "))
	return sb.String(), nil
}
