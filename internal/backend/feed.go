package backend

import (
	"sort"

	"field-scheduler-backend/internal/model"
	"field-scheduler-backend/internal/parse"
)

// Snapshot is a copy of every active record, for read-only exports such as
// calendar feeds.
type Snapshot struct {
	Reservations []model.Reservation `json:"reservations"`
	Blackouts    []model.Blackout    `json:"blackouts"`
	SiteEvents   []model.SiteEvent   `json:"siteEvents"`
	Holidays     []model.Holiday     `json:"holidays"`
}

// PublicFeed returns the active records ordered by date, and by slot start
// within a day. It needs no caller identity.
func (b *Backend) PublicFeed() Snapshot {
	snap := Snapshot{
		Reservations: []model.Reservation{},
		Blackouts:    []model.Blackout{},
		SiteEvents:   []model.SiteEvent{},
	}

	b.state.mu.RLock()
	for _, r := range b.state.reservations {
		if r.Active() {
			snap.Reservations = append(snap.Reservations, r)
		}
	}
	for _, bo := range b.state.blackouts {
		if bo.Active() {
			snap.Blackouts = append(snap.Blackouts, bo)
		}
	}
	for _, ev := range b.state.siteEvents {
		if ev.Active() {
			snap.SiteEvents = append(snap.SiteEvents, ev)
		}
	}
	b.state.mu.RUnlock()
	snap.Holidays = b.holidays()

	loc := b.opts.Location
	sort.SliceStable(snap.Reservations, func(i, j int) bool {
		ri, rj := snap.Reservations[i], snap.Reservations[j]
		return parse.SlotStart(ri.Date, ri.Slot, loc).Before(parse.SlotStart(rj.Date, rj.Slot, loc))
	})
	sort.SliceStable(snap.Blackouts, func(i, j int) bool {
		bi, bj := snap.Blackouts[i], snap.Blackouts[j]
		return parse.SlotStart(bi.Date, bi.Slot, loc).Before(parse.SlotStart(bj.Date, bj.Slot, loc))
	})
	sort.SliceStable(snap.SiteEvents, func(i, j int) bool {
		return snap.SiteEvents[i].Date < snap.SiteEvents[j].Date
	})
	return snap
}
