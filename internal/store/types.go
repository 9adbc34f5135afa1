package store

import "fmt"

// Kind identifies one persisted collection.
type Kind int

const (
	Reservations Kind = iota
	Blackouts
	SiteEvents
	Holidays
	HouseTeams
	Users
	Identities
	PushSubscriptions
)

type kindInfo struct {
	name    string
	file    string
	perYear bool
}

// Year-scoped files live under <dir>/<year>/; the rest sit directly in <dir>.
var kinds = map[Kind]kindInfo{
	Reservations:      {name: "reservations", file: "reservations.json", perYear: true},
	Blackouts:         {name: "blackouts", file: "blackouts.json", perYear: true},
	SiteEvents:        {name: "siteEvents", file: "events.json", perYear: true},
	Holidays:          {name: "holidays", file: "holidays.json", perYear: true},
	HouseTeams:        {name: "houseTeams", file: "teams.json", perYear: true},
	Users:             {name: "users", file: "users.json"},
	Identities:        {name: "identities", file: "identities.json"},
	PushSubscriptions: {name: "pushSubscriptions", file: "subscriptions.json"},
}

const logFile = "logs.txt"

// Kinds lists every collection in load order.
func Kinds() []Kind {
	return []Kind{Reservations, Blackouts, SiteEvents, Holidays, HouseTeams, Users, Identities, PushSubscriptions}
}

func (k Kind) String() string {
	if info, ok := kinds[k]; ok {
		return info.name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// PerYear reports whether the collection is partitioned by calendar year.
func (k Kind) PerYear() bool {
	return kinds[k].perYear
}
