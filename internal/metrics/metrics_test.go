package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.Commit("reservations", nil)
	m.Commit("reservations", nil)
	m.Commit("users", errors.New("disk full"))
	m.Request("POST", "/api/reservations", 201)
	m.Request("GET", "", 404)
	m.Push("sent")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.commits.WithLabelValues("reservations", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commits.WithLabelValues("users", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pushes.WithLabelValues("sent")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.Gauge("stream_subscribers", "Open event streams.", func() float64 { return 3 })
	m.Counter("stream_dropped_events_total", "Dropped stream events.", func() float64 { return 7 })
	m.Commit("holidays", nil)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	text := string(body)
	assert.True(t, strings.Contains(text, "field_stream_subscribers 3"))
	assert.True(t, strings.Contains(text, "field_stream_dropped_events_total 7"))
	assert.True(t, strings.Contains(text, `field_commits_total{kind="holidays",result="ok"} 1`))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.Commit("reservations", nil)
	m.Request("GET", "/", 200)
	m.Push("error")
	m.Gauge("x", "x", func() float64 { return 0 })

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
