package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-court-backend/internal/domain"
	"github.com/tbourn/go-court-backend/internal/repo"
	"github.com/tbourn/go-court-backend/internal/services"
)

// TurnRequest is one message posted in a case thread. The author is the
// acting user.
type TurnRequest struct {
	AuthorName string    `json:"author_name"`
	IsBot      bool      `json:"is_bot"`
	MessageID  int64     `json:"message_id" binding:"required"`
	ReplyTo    *int64    `json:"reply_to"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
}

// ListLogsResponse wraps a page of the case log.
type ListLogsResponse struct {
	Logs       []domain.LogEntry `json:"logs"`
	Pagination Pagination        `json:"pagination"`
}

// PostTurn handles POST /cases/:id/turns. Ignored turns answer 202 with the
// reason; handled turns answer 200 with the judge's reply.
func (h *Handlers) PostTurn(c *gin.Context) {
	uid, valid := actor(c)
	if !valid {
		return
	}
	id, valid := pathID(c)
	if !valid {
		return
	}
	var req TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "A turn needs a message_id.")
		return
	}
	if strings.TrimSpace(req.Text) == "" && !req.IsBot {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "The court cannot hear an empty message.")
		return
	}

	res, err := h.turns.OnDialogueTurn(c.Request.Context(), services.Turn{
		CaseID:     id,
		AuthorID:   uid,
		AuthorName: strings.TrimSpace(req.AuthorName),
		IsBot:      req.IsBot,
		MessageID:  req.MessageID,
		ReplyTo:    req.ReplyTo,
		Text:       req.Text,
		Timestamp:  req.Timestamp,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	if res.Ignored != "" {
		ok(c, http.StatusAccepted, res)
		return
	}
	ok(c, http.StatusOK, res)
}

// ListLogs handles GET /cases/:id/logs, oldest first, with a weak ETag
// keyed on the log size and newest entry.
func (h *Handlers) ListLogs(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	if db := h.casesDB(); db != nil {
		if count, last, err := repo.LogsStats(ctx, db, id); err == nil {
			etag := fmt.Sprintf(`W/"logs:%d:%d:%d:%d:%d"`, id, page, pageSize, count, last)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.cases.LogPage(ctx, id, page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListLogsResponse{Logs: items, Pagination: paginate(page, pageSize, total)})
}
