package backend

import (
	"slices"
	"strings"
	"sync"

	"field-scheduler-backend/internal/model"
	"field-scheduler-backend/internal/store"
)

// State is the authoritative in-memory working set. Records are only ever
// appended or soft-deleted while the change lock is held; mu additionally
// guards them against concurrent readers.
type State struct {
	mu sync.RWMutex

	reservations []model.Reservation
	blackouts    []model.Blackout
	siteEvents   []model.SiteEvent
	holidays     []model.Holiday
	houseTeams   []int
	users        []model.User
	identities   []model.IdentityMapping
}

// NewState returns an empty working set.
func NewState() *State {
	return &State{}
}

// snapshot copies the collection for kind so it can be serialised without
// holding mu.
func (s *State) snapshot(kind store.Kind) any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch kind {
	case store.Reservations:
		return slices.Clone(s.reservations)
	case store.Blackouts:
		return slices.Clone(s.blackouts)
	case store.SiteEvents:
		return slices.Clone(s.siteEvents)
	case store.Holidays:
		return slices.Clone(s.holidays)
	case store.HouseTeams:
		return slices.Clone(s.houseTeams)
	case store.Users:
		out := make([]model.User, len(s.users))
		for i, u := range s.users {
			out[i] = u.Clone()
		}
		return out
	case store.Identities:
		return slices.Clone(s.identities)
	}
	return nil
}

// adopt replaces the collection for kind with the one held by from.
func (s *State) adopt(kind store.Kind, from *State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch kind {
	case store.Reservations:
		s.reservations = from.reservations
	case store.Blackouts:
		s.blackouts = from.blackouts
	case store.SiteEvents:
		s.siteEvents = from.siteEvents
	case store.Holidays:
		s.holidays = from.holidays
	case store.HouseTeams:
		s.houseTeams = from.houseTeams
	case store.Users:
		s.users = from.users
	case store.Identities:
		s.identities = from.identities
	}
}

// The find helpers below expect mu to be held by the caller.

func (s *State) activeReservation(date, slot string, team model.TeamRef) int {
	for i := range s.reservations {
		if s.reservations[i].Active() && s.reservations[i].SameKey(date, slot, team) {
			return i
		}
	}
	return -1
}

func (s *State) activeReservationByID(id string) int {
	for i := range s.reservations {
		if s.reservations[i].ID == id && s.reservations[i].Active() {
			return i
		}
	}
	return -1
}

func (s *State) activeBlackout(date, slot string) int {
	for i := range s.blackouts {
		if s.blackouts[i].Active() && s.blackouts[i].Date == date && s.blackouts[i].Slot == slot {
			return i
		}
	}
	return -1
}

func (s *State) activeSiteEvent(date string) int {
	for i := range s.siteEvents {
		if s.siteEvents[i].Active() && s.siteEvents[i].Date == date {
			return i
		}
	}
	return -1
}

func (s *State) activeHoliday(id string) int {
	for i := range s.holidays {
		if s.holidays[i].ID == id && s.holidays[i].Active() {
			return i
		}
	}
	return -1
}

func (s *State) userByID(id string) int {
	for i := range s.users {
		if s.users[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *State) userByEmail(email string) int {
	if email == "" {
		return -1
	}
	for i := range s.users {
		if strings.EqualFold(s.users[i].Email, email) {
			return i
		}
	}
	return -1
}

func (s *State) identity(subject string) int {
	for i := range s.identities {
		if s.identities[i].ExternalID == subject {
			return i
		}
	}
	return -1
}

func (s *State) teamMembers(team int) int {
	n := 0
	for i := range s.users {
		if !s.users[i].Teams.Admin && s.users[i].Teams.Contains(team) {
			n++
		}
	}
	return n
}

func (s *State) isHouseTeam(team int) bool {
	return slices.Contains(s.houseTeams, team)
}
