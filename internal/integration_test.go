package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"field-scheduler-backend/internal/api"
	"field-scheduler-backend/internal/backend"
	"field-scheduler-backend/internal/model"
	"field-scheduler-backend/internal/mw"
	"field-scheduler-backend/internal/notification"
	"field-scheduler-backend/internal/store"
)

var seasonNow = time.Date(2025, 5, 30, 15, 0, 0, 0, time.UTC)

type stack struct {
	files   *store.FileStore
	backend *backend.Backend
	server  *httptest.Server
}

// startStack wires the service the way cmd/fieldd does, against dir.
func startStack(t *testing.T, ctx context.Context, dir string, watch bool) *stack {
	t.Helper()
	files, err := store.Open(dir, 2025, store.Options{})
	require.NoError(t, err)

	subs := notification.NewSubscriptionRegistry(files)
	require.NoError(t, subs.Load(ctx))
	broadcaster := notification.NewBroadcaster(16, nil)
	t.Cleanup(broadcaster.Close)

	var ids atomic.Int64
	b := backend.New(files, notification.Fanout{broadcaster}, backend.Options{
		AdvanceDays:      7,
		FirstUserIsAdmin: true,
		ContinueOnError:  true,
		Location:         time.UTC,
		Slots:            []string{"10:00am", "3:00pm"},
		Now:              func() time.Time { return seasonNow },
		NewID:            func() string { return fmt.Sprintf("%s-%d", t.Name(), ids.Add(1)) },
		Replay:           broadcaster,
	}, nil)
	require.NoError(t, b.Load(ctx))

	responseCache := cache.New(time.Minute, time.Minute)
	if watch {
		w, err := store.NewWatcher(files, func(kind store.Kind) {
			if kind == store.PushSubscriptions {
				assert.NoError(t, subs.Load(ctx))
			} else {
				assert.NoError(t, b.Reload(ctx, kind))
			}
			responseCache.Flush()
		}, nil)
		require.NoError(t, err)
		go w.Run(ctx)
	}

	router := api.NewRouter(api.NewHandler(b, subs, broadcaster, nil, nil), api.RouterOptions{
		RateLimit: rate.Limit(1000),
		RateBurst: 1000,
		Cache:     responseCache,
		Identity:  mw.IdentityHeaders{Subject: "X-Auth-Subject", Email: "X-Auth-Email", Name: "X-Auth-Name"},
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &stack{files: files, backend: b, server: srv}
}

func (s *stack) call(t *testing.T, method, path, subject string, body any, out any) int {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}
	req, err := http.NewRequest(method, s.server.URL+path, &payload)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if subject != "" {
		req.Header.Set("X-Auth-Subject", subject)
		req.Header.Set("X-Auth-Email", subject+"@example.com")
		req.Header.Set("X-Auth-Name", subject)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// TestSeasonLifecycle books, cancels and audits a reservation through the HTTP
// API and verifies the data survives a restart.
func TestSeasonLifecycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dir := t.TempDir()

	first := startStack(t, ctx, dir, false)

	var admin, coach model.User
	require.Equal(t, http.StatusOK, first.call(t, http.MethodGet, "/api/me", "admin", nil, &admin))
	require.Equal(t, http.StatusOK, first.call(t, http.MethodGet, "/api/me", "coach", nil, &coach))
	assert.True(t, admin.IsAdmin())
	assert.False(t, coach.IsAdmin())

	require.Equal(t, http.StatusOK, first.call(t, http.MethodPatch, "/api/users/"+coach.ID, "admin", map[string]any{"teams": []int{100}}, &coach))

	var kept, dropped model.Reservation
	require.Equal(t, http.StatusCreated, first.call(t, http.MethodPost, "/api/reservations", "coach",
		map[string]any{"date": "2025-06-01", "slot": "10:00am", "team": 100}, &kept))
	require.Equal(t, http.StatusCreated, first.call(t, http.MethodPost, "/api/reservations", "coach",
		map[string]any{"date": "2025-06-02", "slot": "3:00pm", "team": 100}, &dropped))
	assert.Equal(t, http.StatusBadRequest, first.call(t, http.MethodPost, "/api/reservations", "coach",
		map[string]any{"date": "2025-06-02", "slot": "4:00pm", "team": 100}, nil))
	require.Equal(t, http.StatusOK, first.call(t, http.MethodDelete, "/api/reservations/"+dropped.ID, "coach",
		map[string]any{"reason": "exams"}, nil))

	var feed backend.Snapshot
	require.Equal(t, http.StatusOK, first.call(t, http.MethodGet, "/api/feed", "", nil, &feed))
	require.Len(t, feed.Reservations, 1)
	assert.Equal(t, kept.ID, feed.Reservations[0].ID)

	// Restart against the same directory.
	second := startStack(t, ctx, dir, false)

	// Listing only returns active reservations.
	var active []model.Reservation
	require.Equal(t, http.StatusOK, second.call(t, http.MethodGet, "/api/reservations", "coach", nil, &active))
	require.Len(t, active, 1)
	assert.Equal(t, kept.ID, active[0].ID)

	// The abandoned record is kept as history on disk.
	stored, err := store.Load[model.Reservation](ctx, second.files, store.Reservations, nil)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	for _, r := range stored {
		assert.Equal(t, r.ID == kept.ID, r.Active(), r.ID)
		if r.ID == dropped.ID {
			assert.Equal(t, "exams", r.Notes)
		}
	}

	var entries []model.LogEntry
	require.Equal(t, http.StatusOK, second.call(t, http.MethodGet, "/api/logs", "admin", nil, &entries))
	var types []string
	for _, e := range entries {
		types = append(types, string(e.Type))
	}
	assert.Contains(t, types, string(model.LogReservationCreated))
	assert.Contains(t, types, string(model.LogReservationDeleted))
}

// TestExternalEditIsPickedUp edits the house team list behind the service's
// back and checks the running service honours it.
func TestExternalEditIsPickedUp(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := startStack(t, ctx, t.TempDir(), true)
	require.Equal(t, http.StatusOK, s.call(t, http.MethodGet, "/api/me", "admin", nil, nil))

	assert.Equal(t, http.StatusForbidden, s.call(t, http.MethodPost, "/api/me/teams", "newcomer", map[string]any{"team": 42}, nil))

	require.NoError(t, os.WriteFile(s.files.Path(store.HouseTeams), []byte("[42]\n"), 0o644))

	assert.Eventually(t, func() bool {
		return s.call(t, http.MethodPost, "/api/me/teams", "newcomer", map[string]any{"team": 42}, nil) == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)
}
