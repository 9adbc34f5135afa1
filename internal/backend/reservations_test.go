package backend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"field-scheduler-backend/internal/model"
	"field-scheduler-backend/internal/store"
)

func booking(date, slot string, team int) ReservationRequest {
	return ReservationRequest{Date: date, Slot: slot, Team: model.TeamNumber(team)}
}

func TestAddReservation_DoubleBookingRejected(t *testing.T) {
	h := newHarness(t)
	admin := h.ctx("alice")
	coach := h.member(admin, "coach", 100)
	ctx := context.Background()

	first, err := coach.AddReservation(ctx, booking("2025-06-01", "10:00am", 100))
	require.NoError(t, err)
	assert.Equal(t, coach.User().ID, first.UserID)
	assert.True(t, first.Created.Equal(testNow))

	_, err = coach.AddReservation(ctx, booking("2025-06-01", "10:00am", 100))
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.EqualError(t, err, "Reservation already exists for this date and slot")

	// A designator given as text matches the same team.
	_, err = coach.AddReservation(ctx, ReservationRequest{Date: "2025-06-01", Slot: "10:00am", Team: model.TeamName("100")})
	assert.ErrorIs(t, err, ErrDuplicate)

	list, err := coach.ListReservations("2025-06-01")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRemoveReservation_ThenReAdd(t *testing.T) {
	h := newHarness(t)
	admin := h.ctx("alice")
	coach := h.member(admin, "coach", 100)
	ctx := context.Background()

	old, err := coach.AddReservation(ctx, booking("2025-06-01", "10:00am", 100))
	require.NoError(t, err)

	removed, err := coach.RemoveReservation(ctx, old.ID, "rain")
	require.NoError(t, err)
	require.NotNil(t, removed.Abandoned)
	assert.Equal(t, "rain", removed.Notes)
	last := h.sink.last()
	require.NotNil(t, last.Reservation)
	assert.False(t, last.Reservation.Active())

	fresh, err := coach.AddReservation(ctx, booking("2025-06-01", "10:00am", 100))
	require.NoError(t, err)
	assert.NotEqual(t, old.ID, fresh.ID)

	all, err := store.Load[model.Reservation](ctx, h.files, store.Reservations, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, old.ID, all[0].ID)
	assert.False(t, all[0].Active())
	assert.True(t, all[1].Active())

	var types []model.LogType
	for _, e := range h.logEntries() {
		if e.Team != nil {
			types = append(types, e.Type)
		}
	}
	assert.Equal(t, []model.LogType{model.LogReservationCreated, model.LogReservationDeleted, model.LogReservationCreated}, types)
}

func TestRemoveReservation_IsNotRepeatable(t *testing.T) {
	h := newHarness(t)
	admin := h.ctx("alice")
	ctx := context.Background()

	r, err := admin.AddReservation(ctx, booking("2025-06-01", "10:00am", 100))
	require.NoError(t, err)
	_, err = admin.RemoveReservation(ctx, r.ID, "")
	require.NoError(t, err)

	_, err = admin.RemoveReservation(ctx, r.ID, "")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.EqualError(t, err, "Reservation not found")

	_, err = admin.RemoveReservation(ctx, "missing", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddReservation_NonMemberBlocked(t *testing.T) {
	h := newHarness(t)
	admin := h.ctx("alice")
	coach := h.member(admin, "coach", 200)
	ctx := context.Background()

	logBefore := len(h.logEntries())
	sinkBefore := h.sink.count()

	_, err := coach.AddReservation(ctx, booking("2025-06-01", "10:00am", 100))
	assert.True(t, IsPermission(err))
	assert.EqualError(t, err, "Only team members can add reservations")

	list, err := coach.ListReservations("")
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Len(t, h.logEntries(), logBefore)
	assert.Equal(t, sinkBefore, h.sink.count())

	onDisk, err := store.Load[model.Reservation](ctx, h.files, store.Reservations, nil)
	require.NoError(t, err)
	assert.Empty(t, onDisk)
}

func TestRemoveReservation_OtherTeamBlocked(t *testing.T) {
	h := newHarness(t)
	admin := h.ctx("alice")
	coach := h.member(admin, "coach", 200)
	ctx := context.Background()

	r, err := admin.AddReservation(ctx, booking("2025-06-01", "10:00am", 100))
	require.NoError(t, err)

	_, err = coach.RemoveReservation(ctx, r.ID, "")
	assert.EqualError(t, err, "Only team members can remove reservations")
}

func TestAddReservation_Timeframe(t *testing.T) {
	h := newHarness(t)
	admin := h.ctx("alice")
	coach := h.member(admin, "coach", 100)
	ctx := context.Background()

	testCases := []struct {
		date    string
		wantErr string
	}{
		{date: "2025-05-30"},
		{date: "2025-05-29", wantErr: "Cannot reserve a date in the past"},
		{date: "2025-06-06"},
		{date: "2025-06-07", wantErr: "Cannot reserve a date more than 7 days in advance"},
	}
	for _, tc := range testCases {
		t.Run(tc.date, func(t *testing.T) {
			_, err := coach.AddReservation(ctx, booking(tc.date, "10:00am", 100))
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, IsPermission(err))
			assert.EqualError(t, err, tc.wantErr)
		})
	}

	_, err := admin.AddReservation(ctx, booking("2025-09-01", "10:00am", 100))
	assert.NoError(t, err)
}

func TestAddReservation_Validation(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Slots = []string{"10:00am", "2:00pm"} })
	admin := h.ctx("alice")
	ctx := context.Background()

	testCases := []struct {
		name string
		req  ReservationRequest
	}{
		{name: "malformed date", req: booking("06/01/2025", "10:00am", 100)},
		{name: "impossible date", req: booking("2025-02-30", "10:00am", 100)},
		{name: "other season", req: booking("2026-06-01", "10:00am", 100)},
		{name: "unknown slot", req: booking("2025-06-01", "11:00am", 100)},
		{name: "missing team", req: ReservationRequest{Date: "2025-06-01", Slot: "10:00am"}},
		{name: "bad designator", req: ReservationRequest{Date: "2025-06-01", Slot: "10:00am", Team: model.TeamName("Backup")}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := admin.AddReservation(ctx, tc.req)
			assert.True(t, IsValidation(err), "got %v", err)
		})
	}

	_, err := admin.AddReservation(ctx, ReservationRequest{Date: "2025-06-01", Slot: "2:00pm", Team: model.TeamName("114Backup"), Priority: true})
	assert.NoError(t, err)
}

func TestAddReservation_ConcurrentDuplicatesCommitOnce(t *testing.T) {
	h := newHarness(t)
	admin := h.ctx("alice")
	ctx := context.Background()

	const n = 25
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := admin.AddReservation(ctx, booking("2025-06-01", "10:00am", 100))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrDuplicate), errors.Is(err, ErrConflict):
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	list, err := admin.ListReservations("2025-06-01")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestAddReservation_ConcurrentDistinctKeysAllCommit(t *testing.T) {
	h := newHarness(t)
	admin := h.ctx("alice")
	ctx := context.Background()

	const n = 30
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := admin.AddReservation(ctx, booking("2025-06-01", "10:00am", 100+i))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	onDisk, err := store.Load[model.Reservation](ctx, h.files, store.Reservations, nil)
	require.NoError(t, err)
	assert.Len(t, onDisk, n)

	seen := map[string]bool{}
	for _, r := range onDisk {
		key := fmt.Sprintf("%s|%s|%s", r.Date, r.Slot, r.Team)
		assert.False(t, seen[key], "duplicate %s", key)
		seen[key] = true
	}
	assert.Equal(t, n, h.sink.count())
}

func TestReservations_SurviveRestart(t *testing.T) {
	h := newHarness(t)
	admin := h.ctx("alice")
	ctx := context.Background()

	kept, err := admin.AddReservation(ctx, booking("2025-06-01", "10:00am", 100))
	require.NoError(t, err)
	gone, err := admin.AddReservation(ctx, booking("2025-06-01", "2:00pm", 100))
	require.NoError(t, err)
	_, err = admin.RemoveReservation(ctx, gone.ID, "")
	require.NoError(t, err)

	restarted := openHarness(t, h.dir)
	again := restarted.ctx("alice")
	assert.True(t, again.User().IsAdmin())

	list, err := again.ListReservations("")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, kept.ID, list[0].ID)
	assert.True(t, list[0].Team.Equal(model.TeamNumber(100)))
}
