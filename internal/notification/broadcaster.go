package notification

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-hclog"

	"field-scheduler-backend/internal/model"
)

const defaultSubscriberBuffer = 64

// Broadcaster fans changes out to in-process subscribers, such as the
// server-sent event stream. Publishing never blocks: a subscriber whose
// buffer is full misses the event.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[*Subscriber]struct{}
	closed bool
	buffer int
	logger hclog.Logger

	dropped atomic.Uint64
}

// Subscriber receives events on C until Close is called.
type Subscriber struct {
	C <-chan Event

	ch   chan Event
	team int
	b    *Broadcaster
	once sync.Once
}

// NewBroadcaster returns a Broadcaster whose subscribers buffer up to buffer
// events.
func NewBroadcaster(buffer int, logger hclog.Logger) *Broadcaster {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Broadcaster{
		subs:   make(map[*Subscriber]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

// Subscribe registers a subscriber. A non-zero team limits reservation
// events to that team; blackouts and site events are always delivered.
func (b *Broadcaster) Subscribe(team int) *Subscriber {
	ch := make(chan Event, b.buffer)
	s := &Subscriber{C: ch, ch: ch, team: team, b: b}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		s.once.Do(func() { close(ch) })
		return s
	}
	b.subs[s] = struct{}{}
	return s
}

// Close closes every subscriber. Subscribers registered afterwards start
// closed.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	b.closed = true
	subs := make([]*Subscriber, 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		s.Close()
	}
}

// Close unregisters the subscriber and closes C.
func (s *Subscriber) Close() {
	s.once.Do(func() {
		s.b.mu.Lock()
		delete(s.b.subs, s)
		close(s.ch)
		s.b.mu.Unlock()
	})
}

// Subscribers returns the number of open subscribers.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns how many events were dropped for slow subscribers.
func (b *Broadcaster) Dropped() uint64 {
	return b.dropped.Load()
}

// Publish delivers ev to every interested subscriber.
func (b *Broadcaster) Publish(ev Event) {
	team := ev.Team()

	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.subs {
		if s.team != 0 && team != 0 && s.team != team {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			b.dropped.Add(1)
			b.logger.Warn("subscriber is too slow; dropping event", "event", ev.Name())
		}
	}
}

func (b *Broadcaster) ReservationChanged(_ context.Context, r model.Reservation) error {
	b.Publish(Event{Reservation: &r})
	return nil
}

func (b *Broadcaster) BlackoutChanged(_ context.Context, bo model.Blackout) error {
	b.Publish(Event{Blackout: &bo})
	return nil
}

func (b *Broadcaster) SiteEventChanged(_ context.Context, e model.SiteEvent) error {
	b.Publish(Event{SiteEvent: &e})
	return nil
}
