package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-court-backend/internal/services"
)

// StartCourtRequest activates a court in a channel.
type StartCourtRequest struct {
	ID          int64  `json:"id"`
	GuildID     int64  `json:"guild_id"   binding:"required"`
	ChannelID   int64  `json:"channel_id" binding:"required"`
	Name        string `json:"name"       binding:"required,max=255"`
	Description string `json:"description"`
}

// StartCourt handles POST /courts.
func (h *Handlers) StartCourt(c *gin.Context) {
	var req StartCourtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "A court needs a name, a server and a channel.")
		return
	}
	court, err := h.courts.Start(c.Request.Context(), services.StartCourt{
		ID:          req.ID,
		GuildID:     req.GuildID,
		ChannelID:   req.ChannelID,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
	})
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, court)
}

// ListCourts handles GET /courts.
func (h *Handlers) ListCourts(c *gin.Context) {
	courts, err := h.courts.List(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"courts": courts})
}

// StopCourt handles DELETE /courts/:id. Cases filed in the court remain.
func (h *Handlers) StopCourt(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	if err := h.courts.Stop(c.Request.Context(), id); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}
