package backend

import (
	"context"
	"slices"
	"time"

	"field-scheduler-backend/internal/model"
	"field-scheduler-backend/internal/parse"
	"field-scheduler-backend/internal/policy"
	"field-scheduler-backend/internal/store"
)

// Identity is what the authentication provider tells us about a caller.
type Identity struct {
	Subject string
	Email   string
	Name    string
	Image   string
}

// Client describes where a request came from. It is only recorded in the
// audit log.
type Client struct {
	IP        string
	UserAgent string
}

// Context binds one request's caller to the backend. The caller's user
// record is resolved once, when the Context is created.
type Context struct {
	b      *Backend
	user   model.User
	client Client
}

// NewContext resolves id to a user record, creating the record on first
// contact, and returns a Context acting on its behalf.
func (b *Backend) NewContext(ctx context.Context, id Identity, client Client) (*Context, error) {
	if id.Subject == "" {
		return nil, ErrNotAuthenticated
	}

	user, found, err := b.lookupIdentity(id)
	if err != nil {
		return nil, err
	}
	if !found {
		user, err = b.registerIdentity(ctx, id, client)
		if err != nil {
			return nil, err
		}
	}
	return &Context{b: b, user: user, client: client}, nil
}

// lookupIdentity resolves an already mapped subject.
func (b *Backend) lookupIdentity(id Identity) (model.User, bool, error) {
	b.state.mu.RLock()
	defer b.state.mu.RUnlock()

	m := b.state.identity(id.Subject)
	if m < 0 {
		return model.User{}, false, nil
	}
	u := b.state.userByID(b.state.identities[m].UserID)
	if u < 0 {
		return model.User{}, true, policy.Deny("User not found")
	}
	if b.state.users[u].Disabled {
		return model.User{}, true, policy.Deny("User disabled")
	}
	return b.state.users[u].Clone(), true, nil
}

// registerIdentity maps a new subject to a user, linking by email when an
// existing user matches and creating a user otherwise.
func (b *Backend) registerIdentity(ctx context.Context, id Identity, client Client) (model.User, error) {
	release, err := b.begin()
	if err != nil {
		return model.User{}, err
	}

	// Another request for the same subject may have won the race.
	user, found, err := b.lookupIdentity(id)
	if err != nil || found {
		release()
		return user, err
	}

	now := b.opts.Now()
	ch := change{kinds: []store.Kind{store.Identities}}

	b.state.mu.Lock()
	if i := b.state.userByEmail(id.Email); i >= 0 {
		if b.state.users[i].Disabled {
			b.state.mu.Unlock()
			release()
			return model.User{}, policy.Deny("User disabled")
		}
		user = b.state.users[i].Clone()
	} else {
		user = model.User{
			ID:      b.opts.NewID(),
			Name:    firstNonEmpty(id.Name, id.Email, "Unknown"),
			Created: now,
			Updated: now,
			Teams:   model.TeamList(),
			Email:   id.Email,
			Image:   id.Image,
		}
		if b.opts.FirstUserIsAdmin && len(b.state.users) == 0 {
			user.Teams = model.AdminTeams()
		}
		b.state.users = append(b.state.users, user.Clone())

		teams := user.Teams.Clone()
		ch.kinds = append(ch.kinds, store.Users)
		ch.entries = append(ch.entries, model.LogEntry{
			Type:         model.LogUserAdd,
			Timestamp:    now,
			IP:           client.IP,
			UserAgent:    client.UserAgent,
			UserID:       user.ID,
			TargetUserID: user.ID,
			Name:         user.Name,
			Teams:        &teams,
		})
	}
	b.state.identities = append(b.state.identities, model.IdentityMapping{
		ExternalID: id.Subject,
		UserID:     user.ID,
		Created:    now,
	})
	b.state.mu.Unlock()

	ch.entries = append(ch.entries, model.LogEntry{
		Type:         model.LogIdentityLink,
		Timestamp:    now,
		IP:           client.IP,
		UserAgent:    client.UserAgent,
		UserID:       user.ID,
		TargetUserID: user.ID,
		ExternalID:   id.Subject,
	})

	b.logger.Info("registered identity", "user", user.ID, "admin", user.IsAdmin())
	if err := b.commit(ctx, release, ch); err != nil {
		return model.User{}, err
	}
	return user, nil
}

// User returns the caller's user record as resolved when c was created.
func (c *Context) User() model.User { return c.user.Clone() }

// Teams returns the caller's edit permission.
func (c *Context) Teams() model.Teams { return c.user.Teams.Clone() }

// Name returns the caller's display label.
func (c *Context) Name() string { return c.user.Label() }

// entry starts an audit log line for the caller.
func (c *Context) entry(t model.LogType, at time.Time) model.LogEntry {
	return model.LogEntry{
		Type:      t,
		Timestamp: at,
		IP:        c.client.IP,
		UserAgent: c.client.UserAgent,
		UserID:    c.user.ID,
	}
}

func (c *Context) validDate(date string) error {
	day, err := parse.Date(date, c.b.opts.Location)
	if err != nil {
		return invalid("date", "%s", err)
	}
	if day.Year() != c.b.store.Year() {
		return invalid("date", "%s is outside the %d season", date, c.b.store.Year())
	}
	return nil
}

func (c *Context) validSlot(slot string) error {
	if len(c.b.opts.Slots) > 0 {
		if !slices.Contains(c.b.opts.Slots, slot) {
			return invalid("slot", "%q is not a bookable slot", slot)
		}
		return nil
	}
	if _, err := parse.Slot(slot); err != nil {
		return invalid("slot", "%s", err)
	}
	return nil
}

func validTeam(team model.TeamRef) error {
	if team.IsZero() {
		return invalid("team", "team is required")
	}
	if _, err := parse.Team(team.String()); err != nil {
		return invalid("team", "%s", err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
