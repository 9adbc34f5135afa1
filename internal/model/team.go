package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// TeamRef is a team designator as entered by users: either a bare team number
// (stored as a JSON number) or a number with a postfix such as "114Backup".
// The JSON form is preserved across a read/write cycle.
type TeamRef struct {
	text    string
	numeric bool
}

// TeamNumber returns a numeric designator.
func TeamNumber(n int) TeamRef {
	return TeamRef{text: strconv.Itoa(n), numeric: true}
}

// TeamName returns a textual designator.
func TeamName(s string) TeamRef {
	return TeamRef{text: s}
}

func (t TeamRef) String() string { return t.text }

// IsZero reports whether the designator is empty.
func (t TeamRef) IsZero() bool { return t.text == "" }

// Equal compares designators by their text, so 100 and "100" are the same team.
func (t TeamRef) Equal(o TeamRef) bool { return t.text == o.text }

// MarshalJSON implements json.Marshaler.
func (t TeamRef) MarshalJSON() ([]byte, error) {
	if t.numeric {
		return []byte(t.text), nil
	}
	return json.Marshal(t.text)
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *TeamRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = TeamName(s)
		return nil
	}
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return fmt.Errorf("team must be a string or an integer, got %s", b)
	}
	*t = TeamNumber(n)
	return nil
}

// Teams is a user's edit permission: either the admin sentinel or a list of
// team numbers. It is stored as "admin" or [100, 200].
type Teams struct {
	Admin   bool
	Numbers []int
}

// AdminTeams returns the admin sentinel.
func AdminTeams() Teams { return Teams{Admin: true} }

// TeamList returns a non-admin permission for the given teams.
func TeamList(numbers ...int) Teams {
	return Teams{Numbers: append([]int{}, numbers...)}
}

// Contains reports whether team is one of the listed numbers. Admins list none.
func (t Teams) Contains(team int) bool {
	for _, n := range t.Numbers {
		if n == team {
			return true
		}
	}
	return false
}

// Clone returns a copy that does not share the backing slice.
func (t Teams) Clone() Teams {
	return Teams{Admin: t.Admin, Numbers: append([]int{}, t.Numbers...)}
}

// MarshalJSON implements json.Marshaler.
func (t Teams) MarshalJSON() ([]byte, error) {
	if t.Admin {
		return []byte(`"admin"`), nil
	}
	if t.Numbers == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t.Numbers)
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Teams) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s != "admin" {
			return fmt.Errorf("unknown teams value %q", s)
		}
		*t = AdminTeams()
		return nil
	}
	var numbers []int
	if err := json.Unmarshal(b, &numbers); err != nil {
		return err
	}
	*t = Teams{Numbers: numbers}
	return nil
}
