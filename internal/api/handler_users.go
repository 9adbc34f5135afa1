package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"field-scheduler-backend/internal/backend"
)

// GetMe handles GET /api/me.
func (h *Handler) GetMe(c *gin.Context) {
	sc, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sc.User())
}

type joinTeamRequest struct {
	Team int `json:"team" binding:"required"`
}

// JoinTeam handles POST /api/me/teams.
func (h *Handler) JoinTeam(c *gin.Context) {
	var req joinTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sc, ok := h.session(c)
	if !ok {
		return
	}
	user, err := sc.JoinTeam(c.Request.Context(), req.Team)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// GetUsers handles GET /api/users.
func (h *Handler) GetUsers(c *gin.Context) {
	sc, ok := h.session(c)
	if !ok {
		return
	}
	users, err := sc.GetUsers()
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// UpdateUser handles PATCH /api/users/:id.
func (h *Handler) UpdateUser(c *gin.Context) {
	var upd backend.UserUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		badRequest(c, err)
		return
	}
	sc, ok := h.session(c)
	if !ok {
		return
	}
	user, err := sc.UpdateUser(c.Request.Context(), c.Param("id"), upd)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// GetLogs handles GET /api/logs.
func (h *Handler) GetLogs(c *gin.Context) {
	sc, ok := h.session(c)
	if !ok {
		return
	}
	entries, err := sc.GetLogs(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
