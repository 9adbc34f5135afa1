package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"field-scheduler-backend/internal/backend"
)

// ListReservations handles GET /api/reservations?date=YYYY-MM-DD.
func (h *Handler) ListReservations(c *gin.Context) {
	sc, ok := h.session(c)
	if !ok {
		return
	}
	list, err := sc.ListReservations(c.Query("date"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// AddReservation handles POST /api/reservations.
func (h *Handler) AddReservation(c *gin.Context) {
	var req backend.ReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sc, ok := h.session(c)
	if !ok {
		return
	}
	res, err := sc.AddReservation(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

type removeRequest struct {
	Reason string `json:"reason"`
}

// RemoveReservation handles DELETE /api/reservations/:id. The JSON body with
// a reason is optional.
func (h *Handler) RemoveReservation(c *gin.Context) {
	var req removeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	sc, ok := h.session(c)
	if !ok {
		return
	}
	res, err := sc.RemoveReservation(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
