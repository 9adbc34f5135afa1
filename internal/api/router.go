package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"field-scheduler-backend/internal/metrics"
	"field-scheduler-backend/internal/mw"
)

// RouterOptions holds the HTTP edge settings.
type RouterOptions struct {
	RateLimit rate.Limit
	RateBurst int
	CacheTTL  time.Duration
	Identity  mw.IdentityHeaders
	// Cache may be shared with the data file watcher so external edits
	// invalidate cached reads. A fresh cache is created when nil.
	Cache *cache.Cache
	// Metrics enables request counting and GET /metrics when set.
	Metrics *metrics.Metrics
}

// NewRouter creates and configures a new Gin router.
func NewRouter(handler *Handler, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	if opts.Metrics != nil {
		r.Use(mw.Metrics(opts.Metrics))
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	if opts.RateLimit <= 0 {
		opts.RateLimit = rate.Limit(10)
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 5
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Minute
	}
	cacheStore := opts.Cache
	if cacheStore == nil {
		cacheStore = cache.New(opts.CacheTTL, 2*opts.CacheTTL)
	}
	caching := mw.Cache(cacheStore, opts.CacheTTL)
	authenticated := mw.RequireIdentity()

	api := r.Group("/api")
	api.Use(mw.RateLimiter(opts.RateLimit, opts.RateBurst, opts.Identity.ClientIP), mw.Identity(opts.Identity), mw.FlushOnWrite(cacheStore))
	{
		// Public reads
		api.GET("/feed", caching, handler.GetFeed)
		api.GET("/holidays", caching, handler.GetHolidays)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)

		api.GET("/subscriptions", handler.GetSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
	}

	auth := api.Group("", authenticated)
	{
		auth.GET("/stream", handler.Stream)

		auth.GET("/reservations", handler.ListReservations)
		auth.POST("/reservations", handler.AddReservation)
		auth.DELETE("/reservations/:id", handler.RemoveReservation)

		auth.GET("/blackouts", handler.ListBlackouts)
		auth.POST("/blackouts", handler.AddBlackout)
		auth.DELETE("/blackouts", handler.RemoveBlackout)

		auth.GET("/events", handler.ListSiteEvents)
		auth.POST("/events", handler.AddSiteEvent)
		auth.DELETE("/events/:date", handler.RemoveSiteEvent)

		auth.POST("/holidays", handler.AddHoliday)
		auth.DELETE("/holidays/:id", handler.RemoveHoliday)

		auth.GET("/me", handler.GetMe)
		auth.POST("/me/teams", handler.JoinTeam)

		auth.GET("/users", handler.GetUsers)
		auth.PATCH("/users/:id", handler.UpdateUser)
		auth.GET("/logs", handler.GetLogs)

		auth.PUT("/subscriptions", handler.PutSubscription)
	}

	return r
}
