package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	teamRe = regexp.MustCompile(`^([1-9]\d{0,4})(?:\D|$)`)
	dateRe = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	slotRe = regexp.MustCompile(`(?i)^(\d{1,2}):(\d{2})(am|pm)$`)
)

// DateLayout is the on-disk and wire format of calendar days.
const DateLayout = "2006-01-02"

// Team extracts the team number from a designator. A designator is a team
// number between 1 and 99999 with an optional postfix that starts with a
// non-digit ("100", "114Backup", "1868 Guest: 1234").
func Team(raw string) (int, error) {
	m := teamRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return 0, fmt.Errorf("invalid team designator: %q", raw)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("invalid team designator: %q", raw)
	}
	return n, nil
}

// Date parses a YYYY-MM-DD day as local midnight in loc. Impossible days such
// as 2025-02-30 are rejected rather than normalised.
func Date(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	if !dateRe.MatchString(s) {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	d, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}

// FormatDate renders t's calendar day in loc.
func FormatDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DateLayout)
}

// Slot validates a time-of-day label such as "10:00am" and returns its
// offset from midnight.
func Slot(s string) (time.Duration, error) {
	m := slotRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("invalid slot %q: expected h:mmam or h:mmpm", s)
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if hour < 1 || hour > 12 || minute > 59 {
		return 0, fmt.Errorf("invalid slot %q: out of range", s)
	}

	if strings.EqualFold(m[3], "pm") && hour != 12 {
		hour += 12
	}
	if strings.EqualFold(m[3], "am") && hour == 12 {
		hour = 0
	}
	return time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute, nil
}

// SlotStart returns the instant a slot begins on the given day. Unparseable
// input yields the zero time.
func SlotStart(date, slot string, loc *time.Location) time.Time {
	day, err := Date(date, loc)
	if err != nil {
		return time.Time{}
	}
	offset, err := Slot(slot)
	if err != nil {
		return day
	}
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location()).Add(offset)
}
