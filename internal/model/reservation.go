package model

import "time"

// Reservation books one slot of one day for a team. Removing a reservation
// sets Abandoned; the record itself is kept as history.
type Reservation struct {
	ID        string     `json:"id"`
	Date      string     `json:"date"`
	Slot      string     `json:"slot"`
	Team      TeamRef    `json:"team"`
	Created   time.Time  `json:"created"`
	UserID    string     `json:"userId"` // last modifier
	Priority  bool       `json:"priority"`
	Notes     string     `json:"notes,omitempty"`
	Abandoned *time.Time `json:"abandoned,omitempty"`
}

// Active reports whether the reservation has not been abandoned.
func (r *Reservation) Active() bool { return r.Abandoned == nil }

// SameKey reports whether both reservations hold the same date, slot and team.
func (r *Reservation) SameKey(date, slot string, team TeamRef) bool {
	return r.Date == date && r.Slot == slot && r.Team.Equal(team)
}

// Blackout marks one slot of one day unavailable to everyone.
type Blackout struct {
	Date    string     `json:"date"`
	Slot    string     `json:"slot"`
	Created time.Time  `json:"created"`
	UserID  string     `json:"userId"`
	Reason  string     `json:"reason,omitempty"`
	Deleted *time.Time `json:"deleted,omitempty"`
}

// Active reports whether the blackout has not been deleted.
func (b *Blackout) Active() bool { return b.Deleted == nil }

// SiteEvent annotates a whole day.
type SiteEvent struct {
	Date    string     `json:"date"`
	Created time.Time  `json:"created"`
	UserID  string     `json:"userId"`
	Notes   string     `json:"notes,omitempty"`
	Deleted *time.Time `json:"deleted,omitempty"`
}

// Active reports whether the site event has not been deleted.
func (e *SiteEvent) Active() bool { return e.Deleted == nil }

// Holiday is an administrative calendar annotation. Seeded holidays carry
// neither Created nor UserID.
type Holiday struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	Date    string     `json:"date"`
	Icon    string     `json:"icon"`
	URL     string     `json:"url,omitempty"`
	Created *time.Time `json:"created,omitempty"`
	UserID  string     `json:"userId,omitempty"`
	Deleted *time.Time `json:"deleted,omitempty"`
}

// Active reports whether the holiday has not been deleted.
func (h *Holiday) Active() bool { return h.Deleted == nil }
