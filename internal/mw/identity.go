package mw

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"field-scheduler-backend/internal/backend"
)

const (
	identityKey = "fieldIdentity"
	clientKey   = "fieldClient"
)

// IdentityHeaders names the request headers set by the authenticating proxy
// in front of the service.
type IdentityHeaders struct {
	Subject  string
	Email    string
	Name     string
	Image    string
	ClientIP string
}

// Identity records the caller's identity and client metadata on the gin
// context. It does not reject anonymous requests; resolving the identity
// does.
func Identity(h IdentityHeaders) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(identityKey, backend.Identity{
			Subject: strings.TrimSpace(c.GetHeader(h.Subject)),
			Email:   strings.TrimSpace(c.GetHeader(h.Email)),
			Name:    strings.TrimSpace(c.GetHeader(h.Name)),
			Image:   strings.TrimSpace(c.GetHeader(h.Image)),
		})
		c.Set(clientKey, backend.Client{
			IP:        ClientIP(c, h.ClientIP),
			UserAgent: c.Request.UserAgent(),
		})
		c.Next()
	}
}

// RequireIdentity aborts requests that carry no subject.
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IdentityFrom(c).Subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}
		c.Next()
	}
}

// IdentityFrom returns the identity stored by Identity.
func IdentityFrom(c *gin.Context) backend.Identity {
	id, _ := c.Get(identityKey)
	v, _ := id.(backend.Identity)
	return v
}

// ClientFrom returns the client metadata stored by Identity.
func ClientFrom(c *gin.Context) backend.Client {
	cl, _ := c.Get(clientKey)
	v, _ := cl.(backend.Client)
	return v
}

// ClientIP returns the first address in header, falling back to gin's
// ClientIP when the header is unset or empty.
func ClientIP(c *gin.Context, header string) string {
	if header != "" {
		if v := c.GetHeader(header); v != "" {
			ip, _, _ := strings.Cut(v, ",")
			if ip = strings.TrimSpace(ip); ip != "" {
				return ip
			}
		}
	}
	return c.ClientIP()
}
