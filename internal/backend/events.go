package backend

import (
	"context"

	"field-scheduler-backend/internal/model"
	"field-scheduler-backend/internal/policy"
	"field-scheduler-backend/internal/store"
)

// SiteEventRequest is the caller-supplied part of a new site event.
type SiteEventRequest struct {
	Date  string `json:"date"`
	Notes string `json:"notes"`
}

// AddSiteEvent annotates a whole day. Admin only.
func (c *Context) AddSiteEvent(ctx context.Context, req SiteEventRequest) (model.SiteEvent, error) {
	if err := policy.RestrictToAdmin(&c.user, "Only admins can add site events"); err != nil {
		return model.SiteEvent{}, err
	}
	if err := c.validDate(req.Date); err != nil {
		return model.SiteEvent{}, err
	}

	s := c.b.state
	s.mu.RLock()
	exists := s.activeSiteEvent(req.Date) >= 0
	s.mu.RUnlock()
	if exists {
		return model.SiteEvent{}, duplicate("Site event already exists for this date")
	}

	release, err := c.b.begin()
	if err != nil {
		return model.SiteEvent{}, err
	}
	now := c.b.opts.Now()

	s.mu.Lock()
	if s.activeSiteEvent(req.Date) >= 0 {
		s.mu.Unlock()
		release()
		return model.SiteEvent{}, conflict("Site event already exists for this date")
	}
	ev := model.SiteEvent{
		Date:    req.Date,
		Created: now,
		UserID:  c.user.ID,
		Notes:   req.Notes,
	}
	s.siteEvents = append(s.siteEvents, ev)
	s.mu.Unlock()

	entry := c.entry(model.LogSiteEventAdd, now)
	entry.Date, entry.Notes = ev.Date, ev.Notes

	err = c.b.commit(ctx, release, change{
		entries: []model.LogEntry{entry},
		kinds:   []store.Kind{store.SiteEvents},
		notify: func(ctx context.Context) error {
			return c.b.sink.SiteEventChanged(ctx, ev)
		},
	})
	return ev, err
}

// RemoveSiteEvent deletes the active site event on date. Admin only.
func (c *Context) RemoveSiteEvent(ctx context.Context, date string) (model.SiteEvent, error) {
	if err := policy.RestrictToAdmin(&c.user, "Only admins can remove site events"); err != nil {
		return model.SiteEvent{}, err
	}

	s := c.b.state
	s.mu.RLock()
	exists := s.activeSiteEvent(date) >= 0
	s.mu.RUnlock()
	if !exists {
		return model.SiteEvent{}, notFound("Site event not found")
	}

	release, err := c.b.begin()
	if err != nil {
		return model.SiteEvent{}, err
	}
	now := c.b.opts.Now()

	s.mu.Lock()
	i := s.activeSiteEvent(date)
	if i < 0 {
		s.mu.Unlock()
		release()
		return model.SiteEvent{}, notFound("Site event not found")
	}
	s.siteEvents[i].Deleted = &now
	s.siteEvents[i].UserID = c.user.ID
	ev := s.siteEvents[i]
	s.mu.Unlock()

	entry := c.entry(model.LogSiteEventRemove, now)
	entry.Date = ev.Date

	err = c.b.commit(ctx, release, change{
		entries: []model.LogEntry{entry},
		kinds:   []store.Kind{store.SiteEvents},
		notify: func(ctx context.Context) error {
			return c.b.sink.SiteEventChanged(ctx, ev)
		},
	})
	return ev, err
}

// ListSiteEvents returns the active site event on date, or all of them when
// date is empty.
func (c *Context) ListSiteEvents(date string) []model.SiteEvent {
	s := c.b.state
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []model.SiteEvent{}
	for _, ev := range s.siteEvents {
		if ev.Active() && (date == "" || ev.Date == date) {
			out = append(out, ev)
		}
	}
	return out
}
