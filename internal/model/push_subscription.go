package model

import "time"

// PushSubscription holds the information for a browser push subscription.
// A subscription receives changes for the listed teams, or for everything
// when All is set.
type PushSubscription struct {
	Endpoint string    `json:"endpoint"`
	P256DH   string    `json:"p256dh"`
	Auth     string    `json:"auth"`
	UserID   string    `json:"userId"`
	Teams    []int     `json:"teams,omitempty"`
	All      bool      `json:"all,omitempty"`
	Created  time.Time `json:"created"`
}

// Wants reports whether the subscription should hear about team. A zero team
// stands for a change that concerns everyone (blackouts, site events).
func (s *PushSubscription) Wants(team int) bool {
	if s.All || team == 0 {
		return true
	}
	for _, t := range s.Teams {
		if t == team {
			return true
		}
	}
	return false
}
