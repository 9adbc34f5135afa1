package api

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"field-scheduler-backend/internal/notification"
)

const streamHeartbeat = 30 * time.Second

// GetFeed handles GET /api/feed, the public snapshot of active records.
func (h *Handler) GetFeed(c *gin.Context) {
	c.JSON(http.StatusOK, h.backend.PublicFeed())
}

// Stream handles GET /api/stream?team=N. It replays the active records and
// then streams every change as a server-sent event named after its kind.
func (h *Handler) Stream(c *gin.Context) {
	if _, ok := h.session(c); !ok {
		return
	}
	team, err := strconv.Atoi(c.DefaultQuery("team", "0"))
	if err != nil || team < 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "team must be a team number"})
		return
	}

	sub := h.broadcaster.Subscribe(team)
	defer sub.Close()

	var backlog []notification.Event
	snap := h.backend.PublicFeed()
	for i := range snap.Reservations {
		backlog = append(backlog, notification.Event{Reservation: &snap.Reservations[i]})
	}
	for i := range snap.Blackouts {
		backlog = append(backlog, notification.Event{Blackout: &snap.Blackouts[i]})
	}
	for i := range snap.SiteEvents {
		backlog = append(backlog, notification.Event{SiteEvent: &snap.SiteEvents[i]})
	}

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()
	c.Stream(func(w io.Writer) bool {
		if len(backlog) > 0 {
			ev := backlog[0]
			backlog = backlog[1:]
			if team == 0 || ev.Team() == 0 || ev.Team() == team {
				c.SSEvent(ev.Name(), ev)
			}
			return true
		}
		select {
		case ev, ok := <-sub.C:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name(), ev)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
