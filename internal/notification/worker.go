package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/hashicorp/go-hclog"

	"field-scheduler-backend/internal/metrics"
	"field-scheduler-backend/internal/model"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool delivers change notifications to push subscribers.
type WorkerPool struct {
	size     int
	jobs     chan Event
	registry *SubscriptionRegistry
	webpush  *webpush.Options
	sender   NotificationSender
	metrics  *metrics.Metrics
	logger   hclog.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, registry *SubscriptionRegistry, webpushOptions *webpush.Options, logger hclog.Logger) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &WorkerPool{
		size:     size,
		jobs:     make(chan Event, size*16),
		registry: registry,
		webpush:  webpushOptions,
		sender:   &WebPushSender{},
		logger:   logger,
	}
}

// SetMetrics makes the pool count its delivery outcomes on m.
func (wp *WorkerPool) SetMetrics(m *metrics.Metrics) {
	wp.metrics = m
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.logger.Debug("worker started", "worker", id)
	for {
		select {
		case ev := <-wp.jobs:
			wp.deliver(ctx, ev)
		case <-ctx.Done():
			wp.logger.Debug("worker shutting down", "worker", id)
			return
		}
	}
}

// Dispatch queues ev for delivery. It reports false, dropping the event, when
// the queue is full.
func (wp *WorkerPool) Dispatch(ev Event) bool {
	select {
	case wp.jobs <- ev:
		return true
	default:
		wp.logger.Warn("push queue is full; dropping event", "event", ev.Name())
		return false
	}
}

func (wp *WorkerPool) ReservationChanged(_ context.Context, r model.Reservation) error {
	wp.Dispatch(Event{Reservation: &r})
	return nil
}

func (wp *WorkerPool) BlackoutChanged(_ context.Context, b model.Blackout) error {
	wp.Dispatch(Event{Blackout: &b})
	return nil
}

func (wp *WorkerPool) SiteEventChanged(_ context.Context, e model.SiteEvent) error {
	wp.Dispatch(Event{SiteEvent: &e})
	return nil
}

type pushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Event Event  `json:"event"`
}

// Message renders the notification text for ev.
func Message(ev Event) (title, body string) {
	switch {
	case ev.Reservation != nil:
		r := ev.Reservation
		if r.Active() {
			return fmt.Sprintf("Team %s reserved the field", r.Team), fmt.Sprintf("%s at %s", r.Date, r.Slot)
		}
		return fmt.Sprintf("Team %s released the field", r.Team), fmt.Sprintf("%s at %s", r.Date, r.Slot)
	case ev.Blackout != nil:
		b := ev.Blackout
		if b.Active() {
			return "Field unavailable", fmt.Sprintf("%s at %s %s", b.Date, b.Slot, b.Reason)
		}
		return "Field available again", fmt.Sprintf("%s at %s", b.Date, b.Slot)
	case ev.SiteEvent != nil:
		e := ev.SiteEvent
		if e.Active() {
			return "Site event", fmt.Sprintf("%s %s", e.Date, e.Notes)
		}
		return "Site event cancelled", e.Date
	}
	return "", ""
}

func (wp *WorkerPool) deliver(ctx context.Context, ev Event) {
	subs := wp.registry.Interested(ev.Team())
	if len(subs) == 0 {
		return
	}

	title, body := Message(ev)
	payload, err := json.Marshal(pushPayload{Title: title, Body: body, Event: ev})
	if err != nil {
		wp.logger.Error("failed to encode push payload", "error", err)
		return
	}

	wp.logger.Debug("sending push notifications", "event", ev.Name(), "count", len(subs))
	for _, sub := range subs {
		wp.sendNotification(ctx, sub, payload)
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.metrics.Push("error")
		wp.logger.Error("error sending notification", "endpoint", sub.Endpoint, "error", err)
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		wp.metrics.Push("expired")
		wp.logger.Info("subscription expired; deleting", "endpoint", sub.Endpoint)
		if err := wp.registry.Delete(ctx, sub.Endpoint); err != nil {
			wp.logger.Error("failed to delete expired subscription", "endpoint", sub.Endpoint, "error", err)
		}
		return
	}
	if resp.StatusCode >= http.StatusBadRequest {
		wp.metrics.Push("error")
		wp.logger.Warn("push service rejected notification", "endpoint", sub.Endpoint, "status", resp.StatusCode)
		return
	}
	wp.metrics.Push("sent")
}
