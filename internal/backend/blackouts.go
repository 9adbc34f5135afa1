package backend

import (
	"context"

	"field-scheduler-backend/internal/model"
	"field-scheduler-backend/internal/policy"
	"field-scheduler-backend/internal/store"
)

// BlackoutRequest is the caller-supplied part of a new blackout.
type BlackoutRequest struct {
	Date   string `json:"date"`
	Slot   string `json:"slot"`
	Reason string `json:"reason"`
}

// AddBlackout makes a slot unavailable. Admin only.
func (c *Context) AddBlackout(ctx context.Context, req BlackoutRequest) (model.Blackout, error) {
	if err := policy.RestrictToAdmin(&c.user, "Only admins can add blackouts"); err != nil {
		return model.Blackout{}, err
	}
	if err := c.validDate(req.Date); err != nil {
		return model.Blackout{}, err
	}
	if err := c.validSlot(req.Slot); err != nil {
		return model.Blackout{}, err
	}

	s := c.b.state
	s.mu.RLock()
	exists := s.activeBlackout(req.Date, req.Slot) >= 0
	s.mu.RUnlock()
	if exists {
		return model.Blackout{}, duplicate("Blackout already exists for this date and slot")
	}

	release, err := c.b.begin()
	if err != nil {
		return model.Blackout{}, err
	}
	now := c.b.opts.Now()

	s.mu.Lock()
	if s.activeBlackout(req.Date, req.Slot) >= 0 {
		s.mu.Unlock()
		release()
		return model.Blackout{}, conflict("Blackout already exists for this date and slot")
	}
	bo := model.Blackout{
		Date:    req.Date,
		Slot:    req.Slot,
		Created: now,
		UserID:  c.user.ID,
		Reason:  req.Reason,
	}
	s.blackouts = append(s.blackouts, bo)
	s.mu.Unlock()

	entry := c.entry(model.LogBlackoutAdd, now)
	entry.Date, entry.Slot, entry.Reason = bo.Date, bo.Slot, bo.Reason

	err = c.b.commit(ctx, release, change{
		entries: []model.LogEntry{entry},
		kinds:   []store.Kind{store.Blackouts},
		notify: func(ctx context.Context) error {
			return c.b.sink.BlackoutChanged(ctx, bo)
		},
	})
	return bo, err
}

// RemoveBlackout lifts the active blackout on a slot. Admin only.
func (c *Context) RemoveBlackout(ctx context.Context, date, slot string) (model.Blackout, error) {
	if err := policy.RestrictToAdmin(&c.user, "Only admins can remove blackouts"); err != nil {
		return model.Blackout{}, err
	}

	s := c.b.state
	s.mu.RLock()
	exists := s.activeBlackout(date, slot) >= 0
	s.mu.RUnlock()
	if !exists {
		return model.Blackout{}, notFound("Blackout not found")
	}

	release, err := c.b.begin()
	if err != nil {
		return model.Blackout{}, err
	}
	now := c.b.opts.Now()

	s.mu.Lock()
	i := s.activeBlackout(date, slot)
	if i < 0 {
		s.mu.Unlock()
		release()
		return model.Blackout{}, notFound("Blackout not found")
	}
	s.blackouts[i].Deleted = &now
	s.blackouts[i].UserID = c.user.ID
	bo := s.blackouts[i]
	s.mu.Unlock()

	entry := c.entry(model.LogBlackoutRemove, now)
	entry.Date, entry.Slot = bo.Date, bo.Slot

	err = c.b.commit(ctx, release, change{
		entries: []model.LogEntry{entry},
		kinds:   []store.Kind{store.Blackouts},
		notify: func(ctx context.Context) error {
			return c.b.sink.BlackoutChanged(ctx, bo)
		},
	})
	return bo, err
}

// ListBlackouts returns the active blackouts on date, or all of them when
// date is empty.
func (c *Context) ListBlackouts(date string) []model.Blackout {
	s := c.b.state
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []model.Blackout{}
	for _, bo := range s.blackouts {
		if bo.Active() && (date == "" || bo.Date == date) {
			out = append(out, bo)
		}
	}
	return out
}
