// Case endpoints:
//   - POST  /cases                 (file)
//   - GET   /cases?status=&court_id= (list, paginated, weak ETag)
//   - GET   /cases/:id             (details)
//   - PATCH /cases/:id             (edit)
//   - POST  /cases/:id/close | /reopen | /summarize
package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-court-backend/internal/domain"
	"github.com/tbourn/go-court-backend/internal/repo"
	"github.com/tbourn/go-court-backend/internal/services"
	"github.com/tbourn/go-court-backend/internal/utils"
)

// FileCaseRequest is the filing form. The accuser is the acting user.
type FileCaseRequest struct {
	CaseID            int64            `json:"case_id"   binding:"required"`
	CourtID           int64            `json:"court_id"  binding:"required"`
	AccuserName       string           `json:"accuser_name"`
	Accused           []services.Party `json:"accused"   binding:"required"`
	Reason            string           `json:"reason"    binding:"required"`
	Type              string           `json:"case_type" binding:"required"`
	AssociatedCaseIDs []int64          `json:"associated_case_ids"`
}

// CloseCaseRequest carries the closing reason.
type CloseCaseRequest struct {
	Reason string `json:"reason"`
}

// ListCasesResponse wraps a page of cases.
type ListCasesResponse struct {
	Cases      []domain.Case `json:"cases"`
	Pagination Pagination    `json:"pagination"`
}

// FileCase handles POST /cases.
func (h *Handlers) FileCase(c *gin.Context) {
	uid, valid := actor(c)
	if !valid {
		return
	}
	var req FileCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest,
			"To file a case, name the thread, the court, the accused, a reason and a case type.")
		return
	}
	cs, err := h.cases.File(c.Request.Context(), services.FileCase{
		CaseID:            req.CaseID,
		CourtID:           req.CourtID,
		Accuser:           services.Party{ID: uid, Name: req.AccuserName},
		Accused:           req.Accused,
		Reason:            req.Reason,
		Type:              req.Type,
		AssociatedCaseIDs: req.AssociatedCaseIDs,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, cs)
}

// ListCases handles GET /cases. An unknown status is rejected rather than
// ignored.
func (h *Handlers) ListCases(c *gin.Context) {
	ctx := c.Request.Context()
	var f repo.CaseFilter
	if s := strings.ToLower(strings.TrimSpace(c.Query("status"))); s != "" {
		st := domain.CaseStatus(s)
		if !st.Valid() {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status must be open, closed or appealed")
			return
		}
		f.Status = st
	}
	if s := c.Query("court_id"); s != "" {
		id, valid := utils.ParseID(s)
		if !valid {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "court_id must be a positive number")
			return
		}
		f.CourtID = id
	}
	page, pageSize := clampPagination(c)

	if db := h.casesDB(); db != nil {
		if count, latest, err := repo.CasesStats(ctx, db, f); err == nil {
			var ts int64
			if latest != nil {
				ts = latest.UnixNano()
			}
			etag := fmt.Sprintf(`W/"cases:%s:%d:%d:%d:%d:%d"`, f.Status, f.CourtID, page, pageSize, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.cases.List(ctx, f, page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListCasesResponse{Cases: items, Pagination: paginate(page, pageSize, total)})
}

// GetCase handles GET /cases/:id.
func (h *Handlers) GetCase(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	d, err := h.cases.Details(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, d)
}

// EditCase handles PATCH /cases/:id.
func (h *Handlers) EditCase(c *gin.Context) {
	uid, valid := actor(c)
	if !valid {
		return
	}
	id, valid := pathID(c)
	if !valid {
		return
	}
	var req services.EditCase
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	cs, err := h.cases.Edit(c.Request.Context(), id, uid, req)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "The case details have been updated.", "case": cs})
}

// CloseCase handles POST /cases/:id/close.
func (h *Handlers) CloseCase(c *gin.Context) {
	uid, valid := actor(c)
	if !valid {
		return
	}
	id, valid := pathID(c)
	if !valid {
		return
	}
	var req CloseCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Reason) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "State a reason for closing the case.")
		return
	}
	cs, err := h.cases.Close(c.Request.Context(), id, uid, req.Reason)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "The case has been closed. Court is adjourned!", "case": cs})
}

// ReopenCase handles POST /cases/:id/reopen.
func (h *Handlers) ReopenCase(c *gin.Context) {
	uid, valid := actor(c)
	if !valid {
		return
	}
	id, valid := pathID(c)
	if !valid {
		return
	}
	cs, err := h.cases.Reopen(c.Request.Context(), id, uid)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "The case has been reopened.", "case": cs})
}

// SummarizeCase handles POST /cases/:id/summarize.
func (h *Handlers) SummarizeCase(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	cs, err := h.cases.Summarize(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"summary": cs.Summary, "last_summary_index": cs.LastSummaryIndex})
}

// casesDB exposes the store behind the concrete service for ETag checks.
func (h *Handlers) casesDB() *gorm.DB {
	if svc, ok := h.cases.(*services.CaseService); ok {
		return svc.DB
	}
	return nil
}
