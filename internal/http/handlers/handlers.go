package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-court-backend/internal/domain"
	"github.com/tbourn/go-court-backend/internal/http/middleware"
	"github.com/tbourn/go-court-backend/internal/repo"
	"github.com/tbourn/go-court-backend/internal/services"
	"github.com/tbourn/go-court-backend/internal/utils"
)

// CourtService manages the channels a court sits in.
type CourtService interface {
	Start(ctx context.Context, in services.StartCourt) (*domain.Court, error)
	Stop(ctx context.Context, id int64) error
	List(ctx context.Context) ([]domain.Court, error)
}

// CaseService covers participant-facing case operations.
type CaseService interface {
	File(ctx context.Context, in services.FileCase) (*domain.Case, error)
	Edit(ctx context.Context, caseID, actorID int64, in services.EditCase) (*domain.Case, error)
	Close(ctx context.Context, caseID, actorID int64, reason string) (*domain.Case, error)
	Reopen(ctx context.Context, caseID, actorID int64) (*domain.Case, error)
	Summarize(ctx context.Context, caseID int64) (*domain.Case, error)
	List(ctx context.Context, f repo.CaseFilter, page, pageSize int) ([]domain.Case, int64, error)
	Details(ctx context.Context, caseID int64) (*services.CaseDetails, error)
	LogPage(ctx context.Context, caseID int64, page, pageSize int) ([]domain.LogEntry, int64, error)
	Attach(ctx context.Context, caseID, uploaderID int64, in services.AttachEvidence) (*domain.Evidence, error)
	SetEvidenceSummary(ctx context.Context, evidenceID int64, summary string) (*domain.Evidence, error)
}

// TurnHandler runs the deliberation loop for one inbound message.
type TurnHandler interface {
	OnDialogueTurn(ctx context.Context, t services.Turn) (*services.TurnResult, error)
}

// Handlers groups the court API endpoints.
type Handlers struct {
	courts CourtService
	cases  CaseService
	turns  TurnHandler
}

// New binds the handlers to their services.
func New(courts CourtService, cases CaseService, turns TurnHandler) *Handlers {
	return &Handlers{courts: courts, cases: cases, turns: turns}
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func clampPagination(c *gin.Context) (page, pageSize int) {
	return utils.Paginate(c.Query("page"), c.Query("page_size"), defaultPageSize, maxPageSize)
}

// actor returns the acting user or answers 401.
func actor(c *gin.Context) (int64, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "Identify yourself to the court with "+middleware.UserIDHeader+".")
	}
	return id, ok
}

// pathID parses the :id segment or answers 400.
func pathID(c *gin.Context) (int64, bool) {
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Invalid thread ID format. Please provide a numeric thread ID.")
	}
	return id, ok
}
