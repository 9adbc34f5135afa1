package store

import (
	"time"

	"field-scheduler-backend/internal/model"
)

// UserMigration ages out user records at load time: records older than
// DisableAfter are disabled, disabled records older than ExpireAfter are
// dropped. A zero threshold turns that step off.
type UserMigration struct {
	Now          func() time.Time
	DisableAfter time.Duration
	ExpireAfter  time.Duration
}

// Keep applies the migration to u and reports whether it survives.
func (m UserMigration) Keep(u *model.User) bool {
	if u.ID == "" || u.Created.IsZero() {
		return false
	}
	now := time.Now()
	if m.Now != nil {
		now = m.Now()
	}
	age := now.Sub(u.Created)

	if u.Disabled {
		return m.ExpireAfter <= 0 || age <= m.ExpireAfter
	}
	if m.DisableAfter > 0 && age > m.DisableAfter {
		u.Disabled = true
	}
	return true
}
