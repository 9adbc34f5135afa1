package backend

import (
	"context"
	"sort"

	"field-scheduler-backend/internal/model"
	"field-scheduler-backend/internal/policy"
	"field-scheduler-backend/internal/store"
)

// ReservationRequest is the caller-supplied part of a new reservation.
type ReservationRequest struct {
	Date     string        `json:"date"`
	Slot     string        `json:"slot"`
	Team     model.TeamRef `json:"team"`
	Priority bool          `json:"priority"`
	Notes    string        `json:"notes"`
}

// AddReservation books a slot for a team the caller belongs to.
func (c *Context) AddReservation(ctx context.Context, req ReservationRequest) (model.Reservation, error) {
	if err := c.validDate(req.Date); err != nil {
		return model.Reservation{}, err
	}
	if err := c.validSlot(req.Slot); err != nil {
		return model.Reservation{}, err
	}
	if err := validTeam(req.Team); err != nil {
		return model.Reservation{}, err
	}
	if err := policy.RestrictToTeam(&c.user, req.Team, "Only team members can add reservations"); err != nil {
		return model.Reservation{}, err
	}
	if err := c.b.timeframe.Restrict(&c.user, req.Date); err != nil {
		return model.Reservation{}, err
	}

	s := c.b.state
	s.mu.RLock()
	exists := s.activeReservation(req.Date, req.Slot, req.Team) >= 0
	s.mu.RUnlock()
	if exists {
		return model.Reservation{}, duplicate("Reservation already exists for this date and slot")
	}

	release, err := c.b.begin()
	if err != nil {
		return model.Reservation{}, err
	}
	now := c.b.opts.Now()

	s.mu.Lock()
	if s.activeReservation(req.Date, req.Slot, req.Team) >= 0 {
		s.mu.Unlock()
		release()
		return model.Reservation{}, conflict("Reservation already exists for this date and slot")
	}
	res := model.Reservation{
		ID:       c.b.opts.NewID(),
		Date:     req.Date,
		Slot:     req.Slot,
		Team:     req.Team,
		Created:  now,
		UserID:   c.user.ID,
		Priority: req.Priority,
		Notes:    req.Notes,
	}
	s.reservations = append(s.reservations, res)
	s.mu.Unlock()

	entry := c.entry(model.LogReservationCreated, now)
	entry.Date, entry.Slot, entry.Team, entry.Notes = res.Date, res.Slot, &res.Team, res.Notes

	err = c.b.commit(ctx, release, change{
		entries: []model.LogEntry{entry},
		kinds:   []store.Kind{store.Reservations},
		notify: func(ctx context.Context) error {
			return c.b.sink.ReservationChanged(ctx, res)
		},
	})
	return res, err
}

// RemoveReservation abandons an active reservation. A non-empty reason
// replaces the reservation's notes.
func (c *Context) RemoveReservation(ctx context.Context, id, reason string) (model.Reservation, error) {
	s := c.b.state
	s.mu.RLock()
	i := s.activeReservationByID(id)
	var found model.Reservation
	if i >= 0 {
		found = s.reservations[i]
	}
	s.mu.RUnlock()
	if i < 0 {
		return model.Reservation{}, notFound("Reservation not found")
	}

	if err := policy.RestrictToTeam(&c.user, found.Team, "Only team members can remove reservations"); err != nil {
		return model.Reservation{}, err
	}
	if err := c.b.timeframe.Restrict(&c.user, found.Date); err != nil {
		return model.Reservation{}, err
	}

	release, err := c.b.begin()
	if err != nil {
		return model.Reservation{}, err
	}
	now := c.b.opts.Now()

	s.mu.Lock()
	i = s.activeReservationByID(id)
	if i < 0 {
		s.mu.Unlock()
		release()
		return model.Reservation{}, notFound("Reservation not found")
	}
	r := &s.reservations[i]
	r.Abandoned = &now
	r.UserID = c.user.ID
	if reason != "" {
		r.Notes = reason
	}
	res := *r
	s.mu.Unlock()

	entry := c.entry(model.LogReservationDeleted, now)
	entry.Date, entry.Slot, entry.Team, entry.Notes = res.Date, res.Slot, &res.Team, reason

	err = c.b.commit(ctx, release, change{
		entries: []model.LogEntry{entry},
		kinds:   []store.Kind{store.Reservations},
		notify: func(ctx context.Context) error {
			return c.b.sink.ReservationChanged(ctx, res)
		},
	})
	return res, err
}

// ListReservations returns the active reservations on date, or every active
// reservation when date is empty.
func (c *Context) ListReservations(date string) ([]model.Reservation, error) {
	if date != "" {
		if err := c.validDate(date); err != nil {
			return nil, err
		}
	}

	s := c.b.state
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []model.Reservation{}
	for _, r := range s.reservations {
		if r.Active() && (date == "" || r.Date == date) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}
