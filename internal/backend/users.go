package backend

import (
	"context"
	"strings"

	"field-scheduler-backend/internal/model"
	"field-scheduler-backend/internal/policy"
	"field-scheduler-backend/internal/store"
)

// UserUpdate lists the fields an admin may change. Nil fields are left alone.
type UserUpdate struct {
	Teams       *model.Teams `json:"teams"`
	Disabled    *bool        `json:"disabled"`
	DisplayName *string      `json:"displayName"`
}

// GetUsers returns every user record. Admin only.
func (c *Context) GetUsers() ([]model.User, error) {
	if err := policy.RestrictToAdmin(&c.user, "Only admins can list users"); err != nil {
		return nil, err
	}
	return c.b.state.snapshot(store.Users).([]model.User), nil
}

// UpdateUser changes another user's teams, disabled flag or display name.
// Admin only.
func (c *Context) UpdateUser(ctx context.Context, id string, upd UserUpdate) (model.User, error) {
	if err := policy.RestrictToAdmin(&c.user, "Only admins can update users"); err != nil {
		return model.User{}, err
	}
	if upd.Teams != nil && !upd.Teams.Admin {
		for _, n := range upd.Teams.Numbers {
			if n < 1 || n > 99999 {
				return model.User{}, invalid("teams", "%d is not a team number", n)
			}
		}
	}
	if id == c.user.ID && upd.Disabled != nil && *upd.Disabled {
		return model.User{}, invalid("disabled", "cannot disable your own account")
	}

	s := c.b.state
	s.mu.RLock()
	exists := s.userByID(id) >= 0
	s.mu.RUnlock()
	if !exists {
		return model.User{}, notFound("User not found")
	}

	release, err := c.b.begin()
	if err != nil {
		return model.User{}, err
	}
	now := c.b.opts.Now()

	s.mu.Lock()
	i := s.userByID(id)
	if i < 0 {
		s.mu.Unlock()
		release()
		return model.User{}, notFound("User not found")
	}
	u := &s.users[i]
	if upd.Teams != nil {
		u.Teams = upd.Teams.Clone()
	}
	if upd.Disabled != nil {
		u.Disabled = *upd.Disabled
	}
	if upd.DisplayName != nil {
		u.DisplayName = strings.TrimSpace(*upd.DisplayName)
	}
	u.Updated = now
	user := u.Clone()
	s.mu.Unlock()

	teams := user.Teams.Clone()
	disabled := user.Disabled
	entry := c.entry(model.LogUserUpdate, now)
	entry.TargetUserID, entry.Name, entry.Teams, entry.Disabled = user.ID, user.Name, &teams, &disabled

	err = c.b.commit(ctx, release, change{
		entries: []model.LogEntry{entry},
		kinds:   []store.Kind{store.Users},
	})
	return user, err
}

// JoinTeam lets a user register themselves as the first member of a house
// team. Joining a team that already has members needs an admin.
func (c *Context) JoinTeam(ctx context.Context, team int) (model.User, error) {
	if c.user.IsAdmin() {
		return model.User{}, policy.Deny("Admins cannot be on teams")
	}
	if team < 1 || team > 99999 {
		return model.User{}, invalid("team", "%d is not a team number", team)
	}
	if c.user.Teams.Contains(team) {
		return model.User{}, duplicate("User already on team")
	}

	s := c.b.state
	check := func() error {
		if s.teamMembers(team) > 0 {
			return policy.Deny("Team already has members. Please contact an admin to join it")
		}
		if !s.isHouseTeam(team) {
			return policy.Deny("Only house teams can be joined. Please contact an admin")
		}
		return nil
	}

	s.mu.RLock()
	err := check()
	s.mu.RUnlock()
	if err != nil {
		return model.User{}, err
	}

	release, err := c.b.begin()
	if err != nil {
		return model.User{}, err
	}
	now := c.b.opts.Now()

	s.mu.Lock()
	i := s.userByID(c.user.ID)
	if i < 0 {
		s.mu.Unlock()
		release()
		return model.User{}, notFound("User not found")
	}
	if err := check(); err != nil {
		s.mu.Unlock()
		release()
		return model.User{}, err
	}
	u := &s.users[i]
	teams := u.Teams.Clone()
	teams.Numbers = append(teams.Numbers, team)
	u.Teams = teams
	u.Updated = now
	user := u.Clone()
	s.mu.Unlock()
	c.user = user.Clone()

	logged := user.Teams.Clone()
	entry := c.entry(model.LogUserUpdate, now)
	entry.TargetUserID, entry.Name, entry.Teams = user.ID, user.Name, &logged

	err = c.b.commit(ctx, release, change{
		entries: []model.LogEntry{entry},
		kinds:   []store.Kind{store.Users},
	})
	return user, err
}
