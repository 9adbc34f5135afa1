// Package policy holds the pure permission and booking-window checks that
// gate every mutation. None of them touch shared state.
package policy

import (
	"fmt"
	"time"

	"field-scheduler-backend/internal/model"
	"field-scheduler-backend/internal/parse"
)

// PermissionError reports that the caller may not perform an operation.
type PermissionError struct {
	Message string
}

func (e *PermissionError) Error() string { return e.Message }

// Deny returns a PermissionError carrying message.
func Deny(message string) error {
	return &PermissionError{Message: message}
}

// IsAdmin reports whether u holds the admin sentinel.
func IsAdmin(u *model.User) bool {
	return u != nil && u.Teams.Admin
}

// RestrictToAdmin passes only for admins.
func RestrictToAdmin(u *model.User, message string) error {
	if IsAdmin(u) {
		return nil
	}
	return Deny(message)
}

// RestrictToTeam passes for admins and for members of team. Textual
// designators are reduced to their team number first.
func RestrictToTeam(u *model.User, team model.TeamRef, message string) error {
	if IsAdmin(u) {
		return nil
	}
	n, err := parse.Team(team.String())
	if err != nil || u == nil || !u.Teams.Contains(n) {
		return Deny(message)
	}
	return nil
}

// Timeframe limits how far ahead non-admins may book.
type Timeframe struct {
	Days     int
	Now      func() time.Time
	Location *time.Location
}

// Restrict passes for admins; for everyone else date must fall between today
// and today plus Days, inclusive, in the configured location.
func (tf Timeframe) Restrict(u *model.User, date string) error {
	if IsAdmin(u) {
		return nil
	}

	loc := tf.Location
	if loc == nil {
		loc = time.Local
	}
	day, err := parse.Date(date, loc)
	if err != nil {
		return Deny(fmt.Sprintf("Cannot reserve an invalid date: %s", date))
	}

	now := time.Now
	if tf.Now != nil {
		now = tf.Now
	}
	t := now().In(loc)
	thisMorning := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)

	if day.Before(thisMorning) {
		return Deny("Cannot reserve a date in the past")
	}
	if day.After(thisMorning.AddDate(0, 0, tf.Days)) {
		return Deny(fmt.Sprintf("Cannot reserve a date more than %d days in advance", tf.Days))
	}
	return nil
}
