package api

import (
	"errors"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"

	"field-scheduler-backend/internal/backend"
	"field-scheduler-backend/internal/mw"
	"field-scheduler-backend/internal/notification"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	backend       *backend.Backend
	subscriptions *notification.SubscriptionRegistry
	broadcaster   *notification.Broadcaster
	webpush       *webpush.Options
	logger        hclog.Logger
}

// NewHandler creates a new API handler. webpushOptions may be nil when push
// delivery is not configured.
func NewHandler(b *backend.Backend, subs *notification.SubscriptionRegistry, broadcaster *notification.Broadcaster, webpushOptions *webpush.Options, logger hclog.Logger) *Handler {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Handler{
		backend:       b,
		subscriptions: subs,
		broadcaster:   broadcaster,
		webpush:       webpushOptions,
		logger:        logger,
	}
}

// session resolves the caller. On failure the error response has already
// been written.
func (h *Handler) session(c *gin.Context) (*backend.Context, bool) {
	sc, err := h.backend.NewContext(c.Request.Context(), mw.IdentityFrom(c), mw.ClientFrom(c))
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}
	return sc, true
}

func (h *Handler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case backend.IsPermission(err):
		status = http.StatusForbidden
	case backend.IsValidation(err):
		status = http.StatusBadRequest
	case errors.Is(err, backend.ErrNotFound), errors.Is(err, notification.ErrSubscriptionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, backend.ErrDuplicate), errors.Is(err, backend.ErrConflict):
		status = http.StatusConflict
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
