package session

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bhokmandu/storefront/internal/idgen"
	"github.com/bhokmandu/storefront/internal/logging"
)

const contextKey = "storefrontSession"

// Middleware loads the caller's session (creating one on first contact) and
// places it in the request context. When the request carries an Authorization
// bearer, the credential is cached into the session so later flows (the
// failure marker in particular) can act on the caller's behalf.
func Middleware(store Store, cookieName string, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var state *State
		if id, err := c.Cookie(cookieName); err == nil && id != "" {
			if s, err := store.Get(ctx, id); err == nil {
				state = s
			}
		}

		if state == nil {
			now := time.Now()
			state = &State{
				ID:        idgen.WithPrefix("sess_"),
				CreatedAt: now,
				ExpiresAt: now.Add(ttl),
			}
			if err := store.Put(ctx, state); err != nil {
				logging.L(ctx).Error("session create failed", "error", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":   "internal_error",
					"message": "Could not establish a session",
				})
				return
			}
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(cookieName, state.ID, int(ttl.Seconds()), "/", "", false, true)
		}

		// Cache the backend credential for session-scoped flows.
		if auth := c.GetHeader("Authorization"); len(auth) > 7 && auth[:7] == "Bearer " {
			if token := auth[7:]; token != state.BearerToken {
				state.BearerToken = token
				if err := store.Put(ctx, state); err != nil {
					logging.L(ctx).Warn("session credential cache failed", "error", err)
				}
			}
		}

		c.Request = c.Request.WithContext(logging.WithSessionID(ctx, state.ID))
		c.Set(contextKey, state)
		c.Next()
	}
}

// Inject attaches a session state to the gin context directly, bypassing the
// middleware. Intended for tests.
func Inject(c *gin.Context, s *State) {
	c.Set(contextKey, s)
}

// FromContext returns the request's session state. The middleware guarantees
// presence on all routes it wraps.
func FromContext(c *gin.Context) *State {
	if v, ok := c.Get(contextKey); ok {
		if s, ok := v.(*State); ok {
			return s
		}
	}
	return nil
}
