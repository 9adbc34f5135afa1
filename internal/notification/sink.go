package notification

import (
	"context"

	"github.com/hashicorp/go-multierror"

	"field-scheduler-backend/internal/model"
	"field-scheduler-backend/internal/parse"
)

// Sink is told about every committed change and about every record loaded
// at startup.
type Sink interface {
	ReservationChanged(ctx context.Context, r model.Reservation) error
	BlackoutChanged(ctx context.Context, b model.Blackout) error
	SiteEventChanged(ctx context.Context, e model.SiteEvent) error
}

// Event is the wire form of one change. Exactly one field is set.
type Event struct {
	Reservation *model.Reservation `json:"reservation,omitempty"`
	Blackout    *model.Blackout    `json:"blackout,omitempty"`
	SiteEvent   *model.SiteEvent   `json:"siteEvent,omitempty"`
}

// Name is the event type used for server-sent events.
func (e Event) Name() string {
	switch {
	case e.Reservation != nil:
		return "reservation"
	case e.Blackout != nil:
		return "blackout"
	case e.SiteEvent != nil:
		return "siteEvent"
	}
	return "unknown"
}

// Team is the team a change concerns, or 0 when it concerns everyone.
func (e Event) Team() int {
	if e.Reservation == nil {
		return 0
	}
	n, err := parse.Team(e.Reservation.Team.String())
	if err != nil {
		return 0
	}
	return n
}

// Nop discards every change.
type Nop struct{}

func (Nop) ReservationChanged(context.Context, model.Reservation) error { return nil }
func (Nop) BlackoutChanged(context.Context, model.Blackout) error       { return nil }
func (Nop) SiteEventChanged(context.Context, model.SiteEvent) error     { return nil }

// Fanout forwards every change to each of its sinks and reports all
// failures together.
type Fanout []Sink

func (f Fanout) ReservationChanged(ctx context.Context, r model.Reservation) error {
	return f.each(func(s Sink) error { return s.ReservationChanged(ctx, r) })
}

func (f Fanout) BlackoutChanged(ctx context.Context, b model.Blackout) error {
	return f.each(func(s Sink) error { return s.BlackoutChanged(ctx, b) })
}

func (f Fanout) SiteEventChanged(ctx context.Context, e model.SiteEvent) error {
	return f.each(func(s Sink) error { return s.SiteEventChanged(ctx, e) })
}

func (f Fanout) each(call func(Sink) error) error {
	var merr *multierror.Error
	for _, s := range f {
		if err := call(s); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	return merr.ErrorOrNil()
}

// Func adapts a function receiving Events to a Sink.
type Func func(ctx context.Context, ev Event) error

func (f Func) ReservationChanged(ctx context.Context, r model.Reservation) error {
	return f(ctx, Event{Reservation: &r})
}

func (f Func) BlackoutChanged(ctx context.Context, b model.Blackout) error {
	return f(ctx, Event{Blackout: &b})
}

func (f Func) SiteEventChanged(ctx context.Context, e model.SiteEvent) error {
	return f(ctx, Event{SiteEvent: &e})
}
