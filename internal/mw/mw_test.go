package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"

	"field-scheduler-backend/internal/backend"
	"field-scheduler-backend/internal/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_PerClient(t *testing.T) {
	r := gin.New()
	r.Use(RateLimiter(rate.Limit(0.001), 2, "X-Real-IP"))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	a := map[string]string{"X-Real-IP": "10.0.0.1"}
	b := map[string]string{"X-Real-IP": "10.0.0.2"}

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/", a).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/", a).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodGet, "/", a).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/", b).Code)
}

func TestCache_ServesAndFlushes(t *testing.T) {
	store := cache.New(time.Minute, time.Minute)
	calls := 0

	r := gin.New()
	r.Use(FlushOnWrite(store))
	r.GET("/feed", Cache(store, time.Minute), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"calls": calls})
	})
	r.POST("/feed", func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.DELETE("/feed", func(c *gin.Context) { c.Status(http.StatusForbidden) })

	first := serve(r, http.MethodGet, "/feed", nil)
	second := serve(r, http.MethodGet, "/feed", nil)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, 1, calls)

	// A rejected write keeps the cache.
	serve(r, http.MethodDelete, "/feed", nil)
	serve(r, http.MethodGet, "/feed", nil)
	assert.Equal(t, 1, calls)

	serve(r, http.MethodPost, "/feed", nil)
	third := serve(r, http.MethodGet, "/feed", nil)
	assert.Equal(t, 2, calls)
	assert.JSONEq(t, `{"calls":2}`, third.Body.String())
}

func TestIdentity(t *testing.T) {
	headers := IdentityHeaders{
		Subject:  "X-Auth-Subject",
		Email:    "X-Auth-Email",
		Name:     "X-Auth-Name",
		Image:    "X-Auth-Image",
		ClientIP: "X-Forwarded-For",
	}

	var gotID backend.Identity
	var gotClient backend.Client
	r := gin.New()
	r.Use(Identity(headers))
	r.GET("/me", RequireIdentity(), func(c *gin.Context) {
		gotID = IdentityFrom(c)
		gotClient = ClientFrom(c)
		c.Status(http.StatusOK)
	})

	w := serve(r, http.MethodGet, "/me", map[string]string{
		"X-Auth-Subject":  "sub-1",
		"X-Auth-Email":    "coach@example.com",
		"X-Auth-Name":     " Coach ",
		"X-Forwarded-For": "203.0.113.7, 10.0.0.1",
		"User-Agent":      "field-test",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, backend.Identity{Subject: "sub-1", Email: "coach@example.com", Name: "Coach"}, gotID)
	assert.Equal(t, backend.Client{IP: "203.0.113.7", UserAgent: "field-test"}, gotClient)

	w = serve(r, http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMetrics_CountsByRoute(t *testing.T) {
	m := metrics.New()
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/api/holidays/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	serve(r, http.MethodGet, "/api/holidays/1", nil)
	serve(r, http.MethodGet, "/api/holidays/2", nil)
	serve(r, http.MethodGet, "/missing", nil)

	body := serve(r, http.MethodGet, "/metrics", nil).Body.String()
	assert.Contains(t, body, `field_http_requests_total{method="GET",route="/api/holidays/:id",status="204"} 2`)
	assert.Contains(t, body, `field_http_requests_total{method="GET",route="unmatched",status="404"} 1`)
}
