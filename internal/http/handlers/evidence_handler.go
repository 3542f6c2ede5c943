package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-court-backend/internal/services"
	"github.com/tbourn/go-court-backend/internal/tools"
)

// AttachEvidenceRequest describes an uploaded file.
type AttachEvidenceRequest struct {
	Filename    string `json:"filename"    binding:"required,max=255"`
	URL         string `json:"url"         binding:"required,url"`
	Description string `json:"description"`
}

// EvidenceSummaryRequest carries a file summary produced out of band.
type EvidenceSummaryRequest struct {
	Summary string `json:"summary" binding:"required"`
}

// AttachEvidence handles POST /cases/:id/evidence.
func (h *Handlers) AttachEvidence(c *gin.Context) {
	uid, valid := actor(c)
	if !valid {
		return
	}
	id, valid := pathID(c)
	if !valid {
		return
	}
	var req AttachEvidenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Evidence needs a filename and a url.")
		return
	}
	ev, err := h.cases.Attach(c.Request.Context(), id, uid, services.AttachEvidence{
		Filename:    req.Filename,
		URL:         req.URL,
		Description: req.Description,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, ev)
}

// SetEvidenceSummary handles PUT /evidence/:id/summary.
func (h *Handlers) SetEvidenceSummary(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	var req EvidenceSummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "summary required")
		return
	}
	ev, err := h.cases.SetEvidenceSummary(c.Request.Context(), id, req.Summary)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ev)
}

// ListTools handles GET /tools: the actions the judge may take.
func (h *Handlers) ListTools(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{"tools": tools.Schemas()})
}
