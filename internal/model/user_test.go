package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newUser(teams Teams, display string) User {
	return User{ID: "u1", Name: "Pat", DisplayName: display, Teams: teams}
}

func TestUser_ValueAccessors(t *testing.T) {
	testCases := []struct {
		name    string
		user    User
		isAdmin bool
		label   string
	}{
		{name: "admin", user: newUser(AdminTeams(), ""), isAdmin: true, label: "Pat"},
		{name: "member with display name", user: newUser(TeamList(100), "Coach Pat"), isAdmin: false, label: "Coach Pat"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Called on a function result, which is not addressable.
			assert.Equal(t, tc.isAdmin, newUser(tc.user.Teams, tc.user.DisplayName).IsAdmin())
			assert.Equal(t, tc.label, newUser(tc.user.Teams, tc.user.DisplayName).Label())
			assert.Equal(t, tc.isAdmin, tc.user.Clone().IsAdmin())
		})
	}
}
