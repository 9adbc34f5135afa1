// Package backend is the transactional core of the scheduler. Every change
// runs through a single FIFO lock: the caller's permissions are checked, the
// in-memory State is mutated, and the audit log, change notification and
// collection file are then written concurrently before the lock is released.
package backend

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"field-scheduler-backend/internal/lock"
	"field-scheduler-backend/internal/metrics"
	"field-scheduler-backend/internal/model"
	"field-scheduler-backend/internal/notification"
	"field-scheduler-backend/internal/policy"
	"field-scheduler-backend/internal/store"
)

// Options configures a Backend.
type Options struct {
	// AdvanceDays is how far ahead non-admins may book.
	AdvanceDays int
	// FirstUserIsAdmin grants admin to the first user ever created.
	FirstUserIsAdmin bool
	// ContinueOnError releases the change lock even when a commit job fails.
	// When false a failed job leaves the lock held and the backend stalled.
	ContinueOnError bool
	Location        *time.Location
	// Slots restricts reservations and blackouts to the listed labels. When
	// empty any well-formed label is accepted.
	Slots []string

	Now           func() time.Time
	NewID         func() string
	UserMigration store.UserMigration
	// Replay receives the records announced by Load and Reload. Those are
	// not changes, so it should reach live observers only and never push
	// delivery. Defaults to the change sink.
	Replay notification.Sink
	// Metrics is optional.
	Metrics *metrics.Metrics
}

// Backend owns the working set and serialises every change to it.
type Backend struct {
	store  store.Store
	sink   notification.Sink
	opts   Options
	logger hclog.Logger

	lock      lock.Lock
	state     *State
	timeframe policy.Timeframe

	stalled atomic.Bool
}

// New creates a Backend. Load must be called before it serves requests.
func New(s store.Store, sink notification.Sink, opts Options, logger hclog.Logger) *Backend {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if sink == nil {
		sink = notification.Nop{}
	}
	if opts.Replay == nil {
		opts.Replay = sink
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.AdvanceDays <= 0 {
		opts.AdvanceDays = 7
	}
	if opts.UserMigration.Now == nil {
		opts.UserMigration.Now = opts.Now
	}

	return &Backend{
		store:  s,
		sink:   sink,
		opts:   opts,
		logger: logger,
		state:  NewState(),
		timeframe: policy.Timeframe{
			Days:     opts.AdvanceDays,
			Now:      opts.Now,
			Location: opts.Location,
		},
	}
}

// loadOrder lists the collections the backend owns. Push subscriptions are
// kept by the notification layer.
var loadOrder = []store.Kind{
	store.Reservations,
	store.Blackouts,
	store.SiteEvents,
	store.Holidays,
	store.HouseTeams,
	store.Users,
	store.Identities,
}

// Load reads every collection while holding the change lock, then announces
// the loaded reservations, blackouts and site events to the sink. Any read
// failure is fatal; all failures are reported together.
func (b *Backend) Load(ctx context.Context) error {
	release := b.lock.Acquire()
	defer release()

	b.logger.Info("loading data", "year", b.store.Year())

	fresh := NewState()
	var g multierror.Group
	for _, kind := range loadOrder {
		g.Go(func() error {
			return b.read(ctx, kind, fresh)
		})
	}
	if err := g.Wait().ErrorOrNil(); err != nil {
		return fmt.Errorf("load data: %w", err)
	}

	for _, kind := range loadOrder {
		b.state.adopt(kind, fresh)
	}
	for _, kind := range loadOrder {
		b.announce(ctx, kind)
	}

	b.state.mu.RLock()
	b.logger.Info("data loaded",
		"reservations", len(b.state.reservations),
		"blackouts", len(b.state.blackouts),
		"siteEvents", len(b.state.siteEvents),
		"holidays", len(b.state.holidays),
		"users", len(b.state.users))
	b.state.mu.RUnlock()
	return nil
}

// Reload re-reads one collection after its file was edited outside the
// process. On failure the in-memory copy is kept.
func (b *Backend) Reload(ctx context.Context, kind store.Kind) error {
	if !isOwned(kind) {
		return nil
	}
	release, err := b.begin()
	if err != nil {
		return err
	}
	defer release()

	fresh := NewState()
	if err := b.read(ctx, kind, fresh); err != nil {
		b.logger.Error("reload failed; keeping in-memory data", "kind", kind, "error", err)
		return err
	}
	b.state.adopt(kind, fresh)
	b.announce(ctx, kind)
	b.logger.Info("reloaded data file", "kind", kind)
	return nil
}

func isOwned(kind store.Kind) bool {
	for _, k := range loadOrder {
		if k == kind {
			return true
		}
	}
	return false
}

// read loads the collection for kind into into. Each call touches a distinct
// field, so reads for different kinds may run concurrently.
func (b *Backend) read(ctx context.Context, kind store.Kind, into *State) error {
	var err error
	switch kind {
	case store.Reservations:
		into.reservations, err = store.Load[model.Reservation](ctx, b.store, kind, nil)
	case store.Blackouts:
		into.blackouts, err = store.Load[model.Blackout](ctx, b.store, kind, nil)
	case store.SiteEvents:
		into.siteEvents, err = store.Load[model.SiteEvent](ctx, b.store, kind, nil)
	case store.Holidays:
		into.holidays, err = store.Load[model.Holiday](ctx, b.store, kind, nil)
	case store.HouseTeams:
		into.houseTeams, err = store.Load[int](ctx, b.store, kind, nil)
	case store.Users:
		into.users, err = store.Load(ctx, b.store, kind, b.opts.UserMigration.Keep)
	case store.Identities:
		into.identities, err = store.Load(ctx, b.store, kind, func(m *model.IdentityMapping) bool {
			return m.ExternalID != "" && m.UserID != ""
		})
	default:
		err = fmt.Errorf("unknown collection %s", kind)
	}
	return err
}

// announce replays every record of kind to the replay sink so observers that
// connected earlier catch up.
func (b *Backend) announce(ctx context.Context, kind store.Kind) {
	var merr *multierror.Error
	switch kind {
	case store.Reservations:
		for _, r := range b.state.snapshot(kind).([]model.Reservation) {
			if err := b.opts.Replay.ReservationChanged(ctx, r); err != nil {
				merr = multierror.Append(merr, err)
			}
		}
	case store.Blackouts:
		for _, bo := range b.state.snapshot(kind).([]model.Blackout) {
			if err := b.opts.Replay.BlackoutChanged(ctx, bo); err != nil {
				merr = multierror.Append(merr, err)
			}
		}
	case store.SiteEvents:
		for _, e := range b.state.snapshot(kind).([]model.SiteEvent) {
			if err := b.opts.Replay.SiteEventChanged(ctx, e); err != nil {
				merr = multierror.Append(merr, err)
			}
		}
	}
	if err := merr.ErrorOrNil(); err != nil {
		b.logger.Warn("failed to announce loaded records", "kind", kind, "error", err)
	}
}

// Stalled reports whether a strict-mode commit failure is holding the
// change lock.
func (b *Backend) Stalled() bool {
	return b.stalled.Load()
}

// Year is the data year the backend serves.
func (b *Backend) Year() int {
	return b.store.Year()
}

// begin waits for the change lock.
func (b *Backend) begin() (func(), error) {
	if b.stalled.Load() {
		return nil, ErrStalled
	}
	release := b.lock.Acquire()
	b.logger.Trace("change lock acquired", "waiting", b.lock.Waiting())
	return release, nil
}

// change describes the side effects of one committed mutation.
type change struct {
	entries []model.LogEntry
	kinds   []store.Kind
	notify  func(ctx context.Context) error
}

// commit runs the side effects of a mutation concurrently and releases the
// change lock according to the failure policy. The in-memory mutation has
// already happened and is not undone.
func (b *Backend) commit(ctx context.Context, release func(), ch change) error {
	ctx = context.WithoutCancel(ctx)

	var g errgroup.Group
	if len(ch.entries) > 0 {
		g.Go(func() error {
			for _, entry := range ch.entries {
				if err := b.store.AppendLog(ctx, entry); err != nil {
					b.logger.Error("failed to append log entry", "type", entry.Type, "error", err)
					return err
				}
			}
			return nil
		})
	}
	if ch.notify != nil {
		g.Go(func() error {
			if err := ch.notify(ctx); err != nil {
				b.logger.Error("failed to notify change", "error", err)
				return err
			}
			return nil
		})
	}
	for _, kind := range ch.kinds {
		g.Go(func() error {
			err := b.store.Write(ctx, kind, b.state.snapshot(kind))
			b.opts.Metrics.Commit(kind.String(), err)
			if err != nil {
				b.logger.Error("failed to write data file", "kind", kind, "path", b.store.Path(kind), "error", err)
				return err
			}
			return nil
		})
	}

	err := g.Wait()
	if err != nil && !b.opts.ContinueOnError {
		b.stalled.Store(true)
		b.logger.Error("commit failed; holding the change lock until restart", "error", err)
		return fmt.Errorf("commit: %w", err)
	}
	release()
	return nil
}
