package store

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"field-scheduler-backend/internal/model"
)

type kindRecorder struct {
	mu    sync.Mutex
	kinds []Kind
}

func (r *kindRecorder) record(k Kind) {
	r.mu.Lock()
	r.kinds = append(r.kinds, k)
	r.mu.Unlock()
}

func (r *kindRecorder) seen() []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Kind(nil), r.kinds...)
}

func startWatcher(t *testing.T, s *FileStore, rec *kindRecorder) {
	t.Helper()
	w, err := NewWatcher(s, rec.record, nil)
	require.NoError(t, err)
	w.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go w.Run(ctx)
}

func TestWatcher_ReportsExternalEdits(t *testing.T) {
	s := newTestStore(t)
	rec := &kindRecorder{}
	startWatcher(t, s, rec)

	require.NoError(t, os.WriteFile(s.Path(Blackouts), []byte(`[]`), 0o644))

	require.Eventually(t, func() bool {
		for _, k := range rec.seen() {
			if k == Blackouts {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_IgnoresOwnWrites(t *testing.T) {
	s := newTestStore(t)
	rec := &kindRecorder{}
	startWatcher(t, s, rec)

	require.NoError(t, s.Write(context.Background(), Reservations, []model.Reservation{}))
	require.NoError(t, s.AppendLog(context.Background(), model.LogEntry{Type: model.LogReservationCreated}))

	time.Sleep(200 * time.Millisecond)
	assert.Empty(t, rec.seen())
}

func TestWatcher_ReportsEditRightAfterOwnWrite(t *testing.T) {
	s := newTestStore(t)
	rec := &kindRecorder{}
	startWatcher(t, s, rec)

	require.NoError(t, s.Write(context.Background(), Blackouts, []model.Blackout{}))
	require.NoError(t, os.WriteFile(s.Path(Blackouts), []byte(`[{"id":"b1"}]`), 0o644))

	require.Eventually(t, func() bool {
		for _, k := range rec.seen() {
			if k == Blackouts {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}
