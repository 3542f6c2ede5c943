// Package services – CaseService
//
// CaseService covers everything a participant does to a case outside the
// dialogue loop: filing, editing, closing and reopening from the case view,
// attaching evidence, manual summarization, and the read-side queries.
//
// Filing writes the case row first, then the accuser, the accused, and the
// associated-case links, and only then posts the header and records its
// message id. A crash between steps leaves a case that is still readable;
// a case without a header message simply skips reconciliation.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/tbourn/go-court-backend/internal/domain"
	"github.com/tbourn/go-court-backend/internal/messenger"
	"github.com/tbourn/go-court-backend/internal/repo"
)

const (
	defaultMaxAccused     = 4
	defaultReasonMaxRunes = 1000
)

// Party is a user taking part in a filing, with the display name the
// front-end knows them by.
type Party struct {
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
}

// FileCase is a new filing. CaseID is the id of the thread that will host
// the case.
type FileCase struct {
	CaseID            int64   `json:"case_id"`
	CourtID           int64   `json:"court_id"`
	Accuser           Party   `json:"accuser"`
	Accused           []Party `json:"accused"`
	Reason            string  `json:"reason"`
	Type              string  `json:"case_type"`
	AssociatedCaseIDs []int64 `json:"associated_case_ids,omitempty"`
}

// EditCase is a partial edit; nil fields are left alone. Accused replaces
// the whole accused set.
type EditCase struct {
	Type    *string `json:"case_type,omitempty"`
	Reason  *string `json:"reason,omitempty"`
	Accused []Party `json:"accused,omitempty"`
}

// AttachEvidence describes an uploaded file.
type AttachEvidence struct {
	Filename    string `json:"filename"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// CaseDetails is the read model behind the case detail view.
type CaseDetails struct {
	Case              domain.Case       `json:"case"`
	AccuserID         int64             `json:"accuser_id"`
	AccusedIDs        []int64           `json:"accused_ids"`
	WitnessIDs        []int64           `json:"witness_ids"`
	AssociatedCaseIDs []int64           `json:"associated_case_ids"`
	LogCount          int64             `json:"log_count"`
	Evidence          []domain.Evidence `json:"evidence"`
}

// CaseService provides participant-facing case operations.
type CaseService struct {
	DB         *gorm.DB
	Machine    *StateMachine
	Dispatcher *Dispatcher
	Headers    *HeaderReconciler
	Logs       *LogManager
	Summaries  *SummaryScheduler
	Messenger  messenger.Messenger
	Locks      *CaseLocks

	MaxAccused     int
	ReasonMaxRunes int
}

func (s *CaseService) maxAccused() int {
	if s.MaxAccused > 0 {
		return s.MaxAccused
	}
	return defaultMaxAccused
}

func (s *CaseService) reasonMax() int {
	if s.ReasonMaxRunes > 0 {
		return s.ReasonMaxRunes
	}
	return defaultReasonMaxRunes
}

func (s *CaseService) lock(ctx context.Context, caseID int64) (func(), error) {
	if s.Locks == nil {
		return func() {}, nil
	}
	return s.Locks.Acquire(ctx, caseID)
}

func (s *CaseService) reason(r string) (string, error) {
	r = strings.TrimSpace(r)
	if r == "" || utf8.RuneCountInString(r) > s.reasonMax() {
		return "", ErrEmptyReason
	}
	return r, nil
}

// accusedIDs dedupes parties, keeping first-seen order.
func (s *CaseService) accusedIDs(parties []Party) ([]int64, error) {
	seen := make(map[int64]bool, len(parties))
	ids := make([]int64, 0, len(parties))
	for _, p := range parties {
		if p.ID <= 0 {
			return nil, ErrNoAccused
		}
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		ids = append(ids, p.ID)
	}
	if len(ids) == 0 || len(ids) > s.maxAccused() {
		return nil, ErrNoAccused
	}
	return ids, nil
}

func (s *CaseService) participant(ctx context.Context, caseID, userID int64) error {
	c, err := repo.GetCase(ctx, s.DB, caseID)
	if err != nil {
		return err
	}
	if c == nil {
		return ErrCaseNotFound
	}
	ok, err := repo.IsParticipant(ctx, s.DB, caseID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotParticipant
	}
	return nil
}

// File opens a new case in a court and posts its header.
func (s *CaseService) File(ctx context.Context, in FileCase) (*domain.Case, error) {
	ctx, span := otel.Tracer("services/CaseService").Start(ctx, "File",
		trace.WithAttributes(
			attribute.Int64("case.id", in.CaseID),
			attribute.Int64("court.id", in.CourtID),
		),
	)
	defer span.End()

	if in.CaseID <= 0 || in.Accuser.ID <= 0 {
		return nil, ErrInvalidFiling
	}
	reason, err := s.reason(in.Reason)
	if err != nil {
		return nil, err
	}
	ct, err := domain.ParseCaseType(in.Type)
	if err != nil {
		return nil, ErrInvalidCaseType
	}
	accused, err := s.accusedIDs(in.Accused)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	c := &domain.Case{
		ID:        in.CaseID,
		Type:      ct,
		Status:    domain.StatusOpen,
		Reason:    reason,
		CourtID:   in.CourtID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		court, err := repo.GetCourt(ctx, tx, in.CourtID)
		if err != nil {
			return err
		}
		if court == nil {
			return ErrCourtNotFound
		}
		existing, err := repo.GetCase(ctx, tx, in.CaseID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrCaseExists
		}
		if ct == domain.CaseCounter {
			if err := s.checkCounterCase(ctx, tx, in.Accuser.ID, in.AssociatedCaseIDs); err != nil {
				return err
			}
		}

		if err := repo.CreateCase(ctx, tx, c); err != nil {
			return err
		}
		if err := repo.AddParticipants(ctx, tx, c.ID, domain.RoleAccuser, in.Accuser.ID); err != nil {
			return err
		}
		if err := repo.AddParticipants(ctx, tx, c.ID, domain.RoleAccused, accused...); err != nil {
			return err
		}
		if err := learnNames(ctx, tx, partyNames(append([]Party{in.Accuser}, in.Accused...)...)); err != nil {
			return err
		}
		return repo.ReplaceAssociatedCases(ctx, tx, c.ID, in.AssociatedCaseIDs)
	})
	if err != nil {
		return nil, err
	}

	if err := s.postHeader(ctx, c); err != nil {
		log.Warn().Err(err).Int64("case_id", c.ID).Msg("header not posted")
	}
	log.Info().Int64("case_id", c.ID).Int64("court_id", c.CourtID).Str("case_type", string(ct)).Msg("case filed")
	return c, nil
}

// checkCounterCase requires the first associated case to exist and to
// name the filer among its accused.
func (s *CaseService) checkCounterCase(ctx context.Context, tx *gorm.DB, filer int64, associated []int64) error {
	if len(associated) == 0 {
		return ErrCounterCaseTarget
	}
	target, err := repo.GetCase(ctx, tx, associated[0])
	if err != nil {
		return err
	}
	if target == nil {
		return ErrCounterCaseTarget
	}
	accused, err := repo.HasRole(ctx, tx, target.ID, filer, domain.RoleAccused)
	if err != nil {
		return err
	}
	if !accused {
		return ErrCounterCaseTarget
	}
	return nil
}

// postHeader sends the first render and records the message id on c.
func (s *CaseService) postHeader(ctx context.Context, c *domain.Case) error {
	text, err := s.Headers.Render(ctx, c.ID)
	if err != nil {
		return err
	}
	id, err := s.Messenger.SendMessage(ctx, c.ID, text, nil)
	if err != nil {
		return err
	}
	if err := repo.UpdateCase(ctx, s.DB, c.ID, repo.CasePatch{HeaderMessageID: &id}); err != nil {
		return err
	}
	c.HeaderMessageID = id
	return nil
}

// Edit applies a partial edit by a participant and refreshes the header.
func (s *CaseService) Edit(ctx context.Context, caseID, actorID int64, in EditCase) (*domain.Case, error) {
	ctx, span := otel.Tracer("services/CaseService").Start(ctx, "Edit",
		trace.WithAttributes(attribute.Int64("case.id", caseID)),
	)
	defer span.End()

	var patch repo.CasePatch
	if in.Type != nil {
		ct, err := domain.ParseCaseType(*in.Type)
		if err != nil {
			return nil, ErrInvalidCaseType
		}
		patch.Type = &ct
	}
	if in.Reason != nil {
		r, err := s.reason(*in.Reason)
		if err != nil {
			return nil, err
		}
		patch.Reason = &r
	}
	var accused []int64
	if in.Accused != nil {
		ids, err := s.accusedIDs(in.Accused)
		if err != nil {
			return nil, err
		}
		accused = ids
	}

	release, err := s.lock(ctx, caseID)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.participant(ctx, caseID, actorID); err != nil {
		return nil, err
	}

	var out *domain.Case
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.UpdateCase(ctx, tx, caseID, patch); err != nil {
			return err
		}
		if accused != nil {
			if err := repo.ReplaceParticipants(ctx, tx, caseID, domain.RoleAccused, accused); err != nil {
				return err
			}
			if err := learnNames(ctx, tx, partyNames(in.Accused...)); err != nil {
				return err
			}
		}
		c, err := repo.GetCase(ctx, tx, caseID)
		if err != nil {
			return err
		}
		if err := s.Machine.Touch(ctx, tx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrCaseNotFound
		}
		return nil, err
	}
	s.reconcile(ctx, caseID)
	return out, nil
}

// Close closes a case on behalf of a participant.
func (s *CaseService) Close(ctx context.Context, caseID, actorID int64, reason string) (*domain.Case, error) {
	release, err := s.lock(ctx, caseID)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.participant(ctx, caseID, actorID); err != nil {
		return nil, err
	}
	return s.Dispatcher.Close(ctx, caseID, reason)
}

// Reopen reopens a case on behalf of a participant.
func (s *CaseService) Reopen(ctx context.Context, caseID, actorID int64) (*domain.Case, error) {
	release, err := s.lock(ctx, caseID)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.participant(ctx, caseID, actorID); err != nil {
		return nil, err
	}
	return s.Dispatcher.Reopen(ctx, caseID)
}

// Summarize runs a summary now, regardless of how many entries are new,
// and refreshes the header.
func (s *CaseService) Summarize(ctx context.Context, caseID int64) (*domain.Case, error) {
	release, err := s.lock(ctx, caseID)
	if err != nil {
		return nil, err
	}
	defer release()

	if _, err := s.Summaries.SummarizeNow(ctx, caseID); err != nil {
		return nil, err
	}
	s.reconcile(ctx, caseID)
	return repo.GetCase(ctx, s.DB, caseID)
}

// List returns a page of cases (newest first) and the total count.
func (s *CaseService) List(ctx context.Context, f repo.CaseFilter, page, pageSize int) ([]domain.Case, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	total, err := repo.CountCases(ctx, s.DB, f)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Case{}, 0, nil
	}
	items, err := repo.ListCasesPage(ctx, s.DB, f, (page-1)*pageSize, pageSize)
	return items, total, err
}

// Details loads a case with its participants, links, log size and evidence.
func (s *CaseService) Details(ctx context.Context, caseID int64) (*CaseDetails, error) {
	ctx, span := otel.Tracer("services/CaseService").Start(ctx, "Details",
		trace.WithAttributes(attribute.Int64("case.id", caseID)),
	)
	defer span.End()

	c, err := repo.GetCase(ctx, s.DB, caseID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCaseNotFound
	}

	d := &CaseDetails{Case: *c}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.AccuserID, _, err = repo.Accuser(gctx, s.DB, caseID)
		return err
	})
	g.Go(func() (err error) {
		d.AccusedIDs, err = repo.ParticipantIDs(gctx, s.DB, caseID, domain.RoleAccused)
		return err
	})
	g.Go(func() (err error) {
		d.WitnessIDs, err = repo.ParticipantIDs(gctx, s.DB, caseID, domain.RoleWitness)
		return err
	})
	g.Go(func() (err error) {
		d.AssociatedCaseIDs, err = repo.AssociatedCaseIDs(gctx, s.DB, caseID)
		return err
	})
	g.Go(func() (err error) {
		d.LogCount, err = repo.CountLogs(gctx, s.DB, caseID)
		return err
	})
	g.Go(func() (err error) {
		d.Evidence, err = repo.ListEvidence(gctx, s.DB, caseID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}

// LogPage returns a page of a case's dialogue log.
func (s *CaseService) LogPage(ctx context.Context, caseID int64, page, pageSize int) ([]domain.LogEntry, int64, error) {
	c, err := repo.GetCase(ctx, s.DB, caseID)
	if err != nil {
		return nil, 0, err
	}
	if c == nil {
		return nil, 0, ErrCaseNotFound
	}
	return s.Logs.Page(ctx, caseID, page, pageSize)
}

// Attach records evidence on a case and announces it in the thread.
func (s *CaseService) Attach(ctx context.Context, caseID, uploaderID int64, in AttachEvidence) (*domain.Evidence, error) {
	ctx, span := otel.Tracer("services/CaseService").Start(ctx, "Attach",
		trace.WithAttributes(attribute.Int64("case.id", caseID)),
	)
	defer span.End()

	in.Filename = strings.TrimSpace(in.Filename)
	in.URL = strings.TrimSpace(in.URL)
	if in.Filename == "" || in.URL == "" || uploaderID <= 0 {
		return nil, ErrInvalidEvidence
	}
	c, err := repo.GetCase(ctx, s.DB, caseID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCaseNotFound
	}

	ev := &domain.Evidence{
		CaseID:      caseID,
		Filename:    in.Filename,
		URL:         in.URL,
		UploaderID:  uploaderID,
		Description: strings.TrimSpace(in.Description),
		CreatedAt:   time.Now().UTC(),
	}
	if err := repo.AddEvidence(ctx, s.DB, ev); err != nil {
		return nil, err
	}
	notice := fmt.Sprintf("New evidence has been attached to the case by %s.", Mention(uploaderID))
	if _, err := s.Messenger.SendMessage(ctx, caseID, notice, nil); err != nil {
		log.Warn().Err(err).Int64("case_id", caseID).Msg("evidence notice not delivered")
	}
	return ev, nil
}

// SetEvidenceSummary stores the file summarizer's output for a piece of
// evidence.
func (s *CaseService) SetEvidenceSummary(ctx context.Context, evidenceID int64, summary string) (*domain.Evidence, error) {
	if err := repo.SetEvidenceSummary(ctx, s.DB, evidenceID, strings.TrimSpace(summary)); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrEvidenceNotFound
		}
		return nil, err
	}
	return repo.GetEvidence(ctx, s.DB, evidenceID)
}

func (s *CaseService) reconcile(ctx context.Context, caseID int64) {
	if err := s.Headers.Reconcile(ctx, caseID); err != nil {
		log.Warn().Err(err).Int64("case_id", caseID).Msg("header reconcile failed")
	}
}
