package backend

import (
	"context"
	"sort"
	"strings"

	"field-scheduler-backend/internal/model"
	"field-scheduler-backend/internal/policy"
	"field-scheduler-backend/internal/store"
)

// HolidayRequest is the caller-supplied part of a new holiday.
type HolidayRequest struct {
	Name string `json:"name"`
	Date string `json:"date"`
	Icon string `json:"icon"`
	URL  string `json:"url"`
}

// AddHoliday adds a calendar annotation. Admin only.
func (c *Context) AddHoliday(ctx context.Context, req HolidayRequest) (model.Holiday, error) {
	if err := policy.RestrictToAdmin(&c.user, "Only admins can add holidays"); err != nil {
		return model.Holiday{}, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return model.Holiday{}, invalid("name", "name is required")
	}
	if err := c.validDate(req.Date); err != nil {
		return model.Holiday{}, err
	}

	release, err := c.b.begin()
	if err != nil {
		return model.Holiday{}, err
	}
	now := c.b.opts.Now()

	h := model.Holiday{
		ID:      c.b.opts.NewID(),
		Name:    strings.TrimSpace(req.Name),
		Date:    req.Date,
		Icon:    req.Icon,
		URL:     req.URL,
		Created: &now,
		UserID:  c.user.ID,
	}
	s := c.b.state
	s.mu.Lock()
	s.holidays = append(s.holidays, h)
	s.mu.Unlock()

	entry := c.entry(model.LogHolidayAdd, now)
	entry.HolidayID, entry.Name, entry.Date = h.ID, h.Name, h.Date

	err = c.b.commit(ctx, release, change{
		entries: []model.LogEntry{entry},
		kinds:   []store.Kind{store.Holidays},
	})
	return h, err
}

// RemoveHoliday deletes an active holiday. Admin only.
func (c *Context) RemoveHoliday(ctx context.Context, id string) (model.Holiday, error) {
	if err := policy.RestrictToAdmin(&c.user, "Only admins can remove holidays"); err != nil {
		return model.Holiday{}, err
	}

	s := c.b.state
	s.mu.RLock()
	exists := s.activeHoliday(id) >= 0
	s.mu.RUnlock()
	if !exists {
		return model.Holiday{}, notFound("Holiday not found")
	}

	release, err := c.b.begin()
	if err != nil {
		return model.Holiday{}, err
	}
	now := c.b.opts.Now()

	s.mu.Lock()
	i := s.activeHoliday(id)
	if i < 0 {
		s.mu.Unlock()
		release()
		return model.Holiday{}, notFound("Holiday not found")
	}
	s.holidays[i].Deleted = &now
	s.holidays[i].UserID = c.user.ID
	h := s.holidays[i]
	s.mu.Unlock()

	entry := c.entry(model.LogHolidayRemove, now)
	entry.HolidayID, entry.Name, entry.Date = h.ID, h.Name, h.Date

	err = c.b.commit(ctx, release, change{
		entries: []model.LogEntry{entry},
		kinds:   []store.Kind{store.Holidays},
	})
	return h, err
}

// GetHolidays returns the active holidays ordered by date.
func (c *Context) GetHolidays() []model.Holiday {
	return c.b.holidays()
}

func (b *Backend) holidays() []model.Holiday {
	b.state.mu.RLock()
	out := []model.Holiday{}
	for _, h := range b.state.holidays {
		if h.Active() {
			out = append(out, h)
		}
	}
	b.state.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
