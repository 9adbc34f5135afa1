package policy

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"field-scheduler-backend/internal/model"
)

var (
	admin  = &model.User{ID: "a", Teams: model.AdminTeams()}
	member = &model.User{ID: "m", Teams: model.TeamList(100)}
	guest  = &model.User{ID: "g", Teams: model.TeamList()}
)

func assertDenied(t *testing.T, err error) {
	t.Helper()
	var perr *PermissionError
	assert.True(t, errors.As(err, &perr), "expected PermissionError, got %v", err)
}

func TestRestrictToAdmin(t *testing.T) {
	assert.NoError(t, RestrictToAdmin(admin, "no"))
	assertDenied(t, RestrictToAdmin(member, "no"))
	assertDenied(t, RestrictToAdmin(nil, "no"))
}

func TestRestrictToTeam(t *testing.T) {
	testCases := []struct {
		name    string
		user    *model.User
		team    model.TeamRef
		allowed bool
	}{
		{name: "admin any team", user: admin, team: model.TeamNumber(999), allowed: true},
		{name: "member numeric", user: member, team: model.TeamNumber(100), allowed: true},
		{name: "member string", user: member, team: model.TeamName("100"), allowed: true},
		{name: "member postfix", user: member, team: model.TeamName("100Backup"), allowed: true},
		{name: "other team", user: member, team: model.TeamNumber(200), allowed: false},
		{name: "no teams", user: guest, team: model.TeamNumber(100), allowed: false},
		{name: "garbage designator", user: member, team: model.TeamName("abc"), allowed: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := RestrictToTeam(tc.user, tc.team, "Only team members can add reservations")
			if tc.allowed {
				assert.NoError(t, err)
				return
			}
			assertDenied(t, err)
			assert.EqualError(t, err, "Only team members can add reservations")
		})
	}
}

func TestTimeframe_Boundaries(t *testing.T) {
	loc := time.FixedZone("test", -7*3600)
	// Late in the day, so "now + 7 days" and "midnight + 7 days" disagree.
	now := time.Date(2025, 6, 1, 22, 30, 0, 0, loc)
	tf := Timeframe{Days: 7, Now: func() time.Time { return now }, Location: loc}

	assert.NoError(t, tf.Restrict(member, "2025-06-01"), "today")
	assert.NoError(t, tf.Restrict(member, "2025-06-08"), "exactly N days ahead")

	err := tf.Restrict(member, "2025-05-31")
	assertDenied(t, err)
	assert.EqualError(t, err, "Cannot reserve a date in the past")

	err = tf.Restrict(member, "2025-06-09")
	assertDenied(t, err)
	assert.EqualError(t, err, "Cannot reserve a date more than 7 days in advance")

	assertDenied(t, tf.Restrict(member, "not-a-date"))
}

func TestTimeframe_AdminBypass(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tf := Timeframe{Days: 7, Now: func() time.Time { return now }, Location: time.UTC}

	assert.NoError(t, tf.Restrict(admin, "2024-01-01"))
	assert.NoError(t, tf.Restrict(admin, "2025-12-31"))
}

func TestTimeframe_ConfiguredWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	tf := Timeframe{Days: 2, Now: func() time.Time { return now }, Location: time.UTC}

	assert.NoError(t, tf.Restrict(member, "2025-06-03"))
	assertDenied(t, tf.Restrict(member, "2025-06-04"))
}
