// Package services – HeaderReconciler
//
// Every case has one canonical header message in its thread. The header is
// a pure function of stored state (case row, participants, stored display
// names, log count), so re-rendering unchanged state reproduces the same
// text byte for byte.
// Reconcile pushes the render as an edit. A missing header message is
// reported to the caller but never rolls anything back.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-court-backend/internal/domain"
	"github.com/tbourn/go-court-backend/internal/messenger"
	"github.com/tbourn/go-court-backend/internal/repo"
)

// DefaultMaxRunes is the message-length ceiling of the chat front-end.
const DefaultMaxRunes = 2000

const sessionBanner = "Court is now in session. Accuser, please present your case."

// Header holds everything a header render depends on.
type Header struct {
	Case         domain.Case
	AccuserID    int64
	AccusedIDs   []int64
	LogCount     int64
	AccuserName  string
	AccusedNames []string
}

// RenderHeader formats h. It does no trimming.
func RenderHeader(h Header) string {
	accusedMentions := make([]string, len(h.AccusedIDs))
	for i, id := range h.AccusedIDs {
		accusedMentions[i] = Mention(id)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Case: %s vs %s\n", h.AccuserName, strings.Join(h.AccusedNames, ", "))
	fmt.Fprintf(&b, "**Order!** A case has been filed by **%s** against **%s**.\n\n",
		Mention(h.AccuserID), strings.Join(accusedMentions, ", "))
	fmt.Fprintf(&b, "**Reason:** %s  \n", h.Case.Reason)
	fmt.Fprintf(&b, "**Case Type:** %s  \n", h.Case.Type)
	fmt.Fprintf(&b, "**Case Status:** %s  ", h.Case.Status)

	if h.LogCount == 0 {
		b.WriteString("\n\n" + sessionBanner)
	}
	if h.Case.Summary != "" {
		fmt.Fprintf(&b, "\n\n**Summary of the case so far:**\n%s\n", h.Case.Summary)
	}
	if h.Case.Verdict != "" {
		fmt.Fprintf(&b, "\n\n## Verdict: %s", h.Case.Verdict)
	}
	return b.String()
}

// Trim cuts s to at most limit runes, ending in "..." when cut.
func Trim(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	if limit <= 3 {
		return string(r[:limit])
	}
	return string(r[:limit-3]) + "..."
}

// HeaderReconciler renders headers from the store and pushes them.
type HeaderReconciler struct {
	DB        *gorm.DB
	Messenger messenger.Messenger
	MaxRunes  int
}

func (h *HeaderReconciler) maxRunes() int {
	if h.MaxRunes > 0 {
		return h.MaxRunes
	}
	return DefaultMaxRunes
}

// Load gathers the state a header render needs.
func (h *HeaderReconciler) Load(ctx context.Context, caseID int64) (Header, error) {
	c, err := repo.GetCase(ctx, h.DB, caseID)
	if err != nil {
		return Header{}, err
	}
	if c == nil {
		return Header{}, ErrCaseNotFound
	}
	accuser, _, err := repo.Accuser(ctx, h.DB, caseID)
	if err != nil {
		return Header{}, err
	}
	accused, err := repo.ParticipantIDs(ctx, h.DB, caseID, domain.RoleAccused)
	if err != nil {
		return Header{}, err
	}
	n, err := repo.CountLogs(ctx, h.DB, caseID)
	if err != nil {
		return Header{}, err
	}

	names, err := displayNames(ctx, h.DB, append([]int64{accuser}, accused...)...)
	if err != nil {
		return Header{}, err
	}
	return Header{
		Case:         *c,
		AccuserID:    accuser,
		AccusedIDs:   accused,
		LogCount:     n,
		AccuserName:  names[0],
		AccusedNames: names[1:],
	}, nil
}

// Render returns the trimmed header text for a case.
func (h *HeaderReconciler) Render(ctx context.Context, caseID int64) (string, error) {
	data, err := h.Load(ctx, caseID)
	if err != nil {
		return "", err
	}
	return Trim(RenderHeader(data), h.maxRunes()), nil
}

// Reconcile re-renders a case header and edits the header message. It
// returns ErrNoHeaderMessage when the case never got one and
// messenger.ErrMessageNotFound when it was deleted.
func (h *HeaderReconciler) Reconcile(ctx context.Context, caseID int64) error {
	ctx, span := otel.Tracer("services/HeaderReconciler").Start(ctx, "Reconcile",
		trace.WithAttributes(attribute.Int64("case.id", caseID)),
	)
	defer span.End()

	data, err := h.Load(ctx, caseID)
	if err != nil {
		reconciles.WithLabelValues("error").Inc()
		return err
	}
	if data.Case.HeaderMessageID == 0 {
		reconciles.WithLabelValues("missing").Inc()
		return ErrNoHeaderMessage
	}
	text := Trim(RenderHeader(data), h.maxRunes())
	if err := h.Messenger.EditMessage(ctx, caseID, data.Case.HeaderMessageID, text); err != nil {
		if errors.Is(err, messenger.ErrMessageNotFound) {
			reconciles.WithLabelValues("missing").Inc()
		} else {
			reconciles.WithLabelValues("error").Inc()
		}
		return err
	}
	reconciles.WithLabelValues("ok").Inc()
	return nil
}
