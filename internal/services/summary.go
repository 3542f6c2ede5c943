// Package services – SummaryScheduler
//
// The running summary of a case condenses its dialogue log. A summary run
// reads the last Window entries plus the current summary and replaces the
// summary with the summarizer's output, advancing last_summary_index to the
// log count at read time. Runs are triggered when at least Threshold
// entries have accumulated since the previous run, or on demand.
//
// When the summarizer fails the existing summary is kept (or the placeholder
// stored if there was none) and the index does not move, so the next turn
// retries.
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
	"github.com/tbourn/go-court-backend/internal/repo"
)

// SummaryPlaceholder is stored when no summary could be produced.
const SummaryPlaceholder = "Summary could not be generated."

const (
	defaultSummaryThreshold = 10
	defaultSummaryWindow    = 24
)

// ShouldSummarize reports whether enough entries accumulated since the last
// run: count - last >= threshold.
func ShouldSummarize(count, last int64, threshold int) bool {
	return count-last >= int64(threshold)
}

// SummaryScheduler decides when to summarize and stores the result.
type SummaryScheduler struct {
	DB         *gorm.DB
	Logs       *LogManager
	Summarizer agent.Summarizer

	Threshold int
	Window    int
	// Timeout bounds one summarizer call; zero means no extra bound.
	Timeout time.Duration
	Now     func() time.Time
}

func (s *SummaryScheduler) threshold() int {
	if s.Threshold > 0 {
		return s.Threshold
	}
	return defaultSummaryThreshold
}

func (s *SummaryScheduler) window() int {
	if s.Window > 0 {
		return s.Window
	}
	return defaultSummaryWindow
}

func (s *SummaryScheduler) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// MaybeSummarize runs a summary when the threshold is met. It reports
// whether a new summary was stored.
func (s *SummaryScheduler) MaybeSummarize(ctx context.Context, caseID int64) (bool, error) {
	ctx, span := otel.Tracer("services/SummaryScheduler").Start(ctx, "MaybeSummarize",
		trace.WithAttributes(attribute.Int64("case.id", caseID)),
	)
	defer span.End()
	return s.run(ctx, caseID, false)
}

// SummarizeNow runs a summary regardless of the threshold.
func (s *SummaryScheduler) SummarizeNow(ctx context.Context, caseID int64) (bool, error) {
	ctx, span := otel.Tracer("services/SummaryScheduler").Start(ctx, "SummarizeNow",
		trace.WithAttributes(attribute.Int64("case.id", caseID)),
	)
	defer span.End()
	return s.run(ctx, caseID, true)
}

func (s *SummaryScheduler) run(ctx context.Context, caseID int64, manual bool) (bool, error) {
	trigger := "threshold"
	if manual {
		trigger = "manual"
	}

	c, err := repo.GetCase(ctx, s.DB, caseID)
	if err != nil {
		return false, err
	}
	if c == nil {
		return false, ErrCaseNotFound
	}
	count, err := s.Logs.Count(ctx, caseID)
	if err != nil {
		return false, err
	}
	if !manual && !ShouldSummarize(count, c.LastSummaryIndex, s.threshold()) {
		return false, nil
	}

	window, err := s.Logs.Window(ctx, caseID, s.window())
	if err != nil {
		return false, err
	}
	current := c.Summary
	if current == SummaryPlaceholder {
		current = ""
	}

	sctx := ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		sctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	text, serr := s.Summarizer.Summarize(sctx, Transcript(window), current)
	if serr != nil || text == "" {
		if serr == nil {
			serr = agent.ErrEmptyReply
		}
		log.Warn().Err(serr).Int64("case_id", caseID).Str("trigger", trigger).Msg("summarizer failed; keeping previous summary")
		summaries.WithLabelValues(trigger, "fallback").Inc()
		if c.Summary == "" {
			placeholder := SummaryPlaceholder
			at := s.now()
			if err := repo.UpdateCase(ctx, s.DB, caseID, repo.CasePatch{Summary: &placeholder, UpdatedAt: &at}); err != nil {
				return false, err
			}
		}
		return false, nil
	}

	if err := repo.StoreSummary(ctx, s.DB, caseID, text, count, s.now()); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			// A concurrent run already covered more entries.
			return false, nil
		}
		return false, err
	}
	summaries.WithLabelValues(trigger, "ok").Inc()
	log.Debug().Int64("case_id", caseID).Int64("index", count).Str("trigger", trigger).Msg("summary stored")
	return true, nil
}
