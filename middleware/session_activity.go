package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pilab-dev/homefin-auth/services"
	"github.com/rs/zerolog/log"
)

// Response headers describing the idle policy and the time left.
const (
	HeaderSessionTimeout   = "X-Session-Timeout"
	HeaderSessionGrace     = "X-Session-Grace"
	HeaderSessionRemaining = "X-Session-Remaining"
)

// SessionActivityConfig configures the SessionActivity middleware.
type SessionActivityConfig struct {
	// ExemptPaths never touch the session. An entry ending in "/" matches
	// everything below it; any other entry matches itself and its subpaths.
	ExemptPaths []string
	// KeepAlivePath is the only route allowed to extend a session in grace.
	KeepAlivePath string
	// LoginPath is where expired browser sessions are redirected.
	LoginPath string
}

func (cfg SessionActivityConfig) exempt(path string) bool {
	for _, p := range cfg.ExemptPaths {
		if matchPath(p, path) {
			return true
		}
	}
	return false
}

// matchPath matches on segment boundaries, so "/login" covers "/login" and
// "/login/callback" but not "/login-history".
func matchPath(pattern, path string) bool {
	switch {
	case pattern == "":
		return false
	case strings.HasSuffix(pattern, "/"):
		return strings.HasPrefix(path, pattern)
	default:
		return path == pattern || strings.HasPrefix(path, pattern+"/")
	}
}

// SessionActivity applies the idle/grace policy to every authenticated,
// non-exempt request. It must run after Authenticate.
func SessionActivity(tracker *services.SessionActivityTracker, cfg SessionActivityConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		policy := tracker.Policy()
		if !policy.Enabled() || cfg.exempt(c.Request.URL.Path) {
			c.Next()
			return
		}
		id, ok := GetIdentity(c)
		if !ok {
			c.Next()
			return
		}

		keepAlive := c.Request.Method == http.MethodPost && c.Request.URL.Path == cfg.KeepAlivePath
		decision, err := tracker.Track(c.Request.Context(), id.Session, keepAlive)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if decision.State == services.StateExpired {
			log.Info().Str("userID", id.UserID).Str("sessionID", id.SessionID).Msg("Session expired after inactivity")
			abortSessionExpired(c, cfg.LoginPath)
			return
		}

		c.Header(HeaderSessionTimeout, seconds(policy.Timeout))
		c.Header(HeaderSessionGrace, seconds(max(policy.Grace, 0)))
		c.Header(HeaderSessionRemaining, seconds(decision.IdleRemaining))
		c.Next()
	}
}

func seconds(d time.Duration) string {
	return strconv.FormatInt(int64(d/time.Second), 10)
}
