package notification

import (
	"context"
	"errors"
	"slices"
	"sync"

	"field-scheduler-backend/internal/model"
	"field-scheduler-backend/internal/store"
)

// ErrSubscriptionNotFound is returned for an unknown endpoint.
var ErrSubscriptionNotFound = errors.New("subscription not found")

// SubscriptionRegistry keeps the push subscriptions in memory and rewrites
// their file after every change.
type SubscriptionRegistry struct {
	store store.Store

	mu   sync.RWMutex
	subs []model.PushSubscription
}

// NewSubscriptionRegistry returns an empty registry backed by s.
func NewSubscriptionRegistry(s store.Store) *SubscriptionRegistry {
	return &SubscriptionRegistry{store: s}
}

// Load replaces the registry's contents with the persisted subscriptions.
func (r *SubscriptionRegistry) Load(ctx context.Context) error {
	subs, err := store.Load(ctx, r.store, store.PushSubscriptions, func(s *model.PushSubscription) bool {
		return s.Endpoint != ""
	})
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.subs = subs
	r.mu.Unlock()
	return nil
}

// Put creates or replaces the subscription for sub.Endpoint.
func (r *SubscriptionRegistry) Put(ctx context.Context, sub model.PushSubscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.index(sub.Endpoint)
	if i >= 0 {
		sub.Created = r.subs[i].Created
		r.subs[i] = sub
	} else {
		r.subs = append(r.subs, sub)
	}
	return r.store.Write(ctx, store.PushSubscriptions, r.subs)
}

// Delete removes the subscription for endpoint.
func (r *SubscriptionRegistry) Delete(ctx context.Context, endpoint string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.index(endpoint)
	if i < 0 {
		return ErrSubscriptionNotFound
	}
	r.subs = slices.Delete(r.subs, i, i+1)
	return r.store.Write(ctx, store.PushSubscriptions, r.subs)
}

// Get returns the subscription for endpoint.
func (r *SubscriptionRegistry) Get(endpoint string) (model.PushSubscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.index(endpoint)
	if i < 0 {
		return model.PushSubscription{}, ErrSubscriptionNotFound
	}
	return r.subs[i], nil
}

// Interested returns the subscriptions that want changes for team.
func (r *SubscriptionRegistry) Interested(team int) []model.PushSubscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []model.PushSubscription
	for i := range r.subs {
		if r.subs[i].Wants(team) {
			out = append(out, r.subs[i])
		}
	}
	return out
}

func (r *SubscriptionRegistry) index(endpoint string) int {
	for i := range r.subs {
		if r.subs[i].Endpoint == endpoint {
			return i
		}
	}
	return -1
}
