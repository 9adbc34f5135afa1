package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"field-scheduler-backend/internal/backend"
)

// ListBlackouts handles GET /api/blackouts?date=YYYY-MM-DD.
func (h *Handler) ListBlackouts(c *gin.Context) {
	sc, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sc.ListBlackouts(c.Query("date")))
}

// AddBlackout handles POST /api/blackouts.
func (h *Handler) AddBlackout(c *gin.Context) {
	var req backend.BlackoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sc, ok := h.session(c)
	if !ok {
		return
	}
	bo, err := sc.AddBlackout(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bo)
}

type removeBlackoutRequest struct {
	Date string `json:"date" binding:"required"`
	Slot string `json:"slot" binding:"required"`
}

// RemoveBlackout handles DELETE /api/blackouts.
func (h *Handler) RemoveBlackout(c *gin.Context) {
	var req removeBlackoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sc, ok := h.session(c)
	if !ok {
		return
	}
	bo, err := sc.RemoveBlackout(c.Request.Context(), req.Date, req.Slot)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bo)
}

// ListSiteEvents handles GET /api/events?date=YYYY-MM-DD.
func (h *Handler) ListSiteEvents(c *gin.Context) {
	sc, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sc.ListSiteEvents(c.Query("date")))
}

// AddSiteEvent handles POST /api/events.
func (h *Handler) AddSiteEvent(c *gin.Context) {
	var req backend.SiteEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sc, ok := h.session(c)
	if !ok {
		return
	}
	ev, err := sc.AddSiteEvent(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ev)
}

// RemoveSiteEvent handles DELETE /api/events/:date.
func (h *Handler) RemoveSiteEvent(c *gin.Context) {
	sc, ok := h.session(c)
	if !ok {
		return
	}
	ev, err := sc.RemoveSiteEvent(c.Request.Context(), c.Param("date"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

// GetHolidays handles GET /api/holidays. Holidays are public.
func (h *Handler) GetHolidays(c *gin.Context) {
	c.JSON(http.StatusOK, h.backend.PublicFeed().Holidays)
}

// AddHoliday handles POST /api/holidays.
func (h *Handler) AddHoliday(c *gin.Context) {
	var req backend.HolidayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sc, ok := h.session(c)
	if !ok {
		return
	}
	holiday, err := sc.AddHoliday(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, holiday)
}

// RemoveHoliday handles DELETE /api/holidays/:id.
func (h *Handler) RemoveHoliday(c *gin.Context) {
	sc, ok := h.session(c)
	if !ok {
		return
	}
	holiday, err := sc.RemoveHoliday(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, holiday)
}
