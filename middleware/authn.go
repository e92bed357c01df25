package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pilab-dev/homefin-auth/domain"
	serrors "github.com/pilab-dev/homefin-auth/errors"
	"github.com/pilab-dev/homefin-auth/internal/audit"
	"github.com/pilab-dev/homefin-auth/internal/metrics"
	"github.com/pilab-dev/homefin-auth/services"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const bearerPrefix = "Bearer "

// extractBearer returns the token from an Authorization header, or "".
func extractBearer(header string) string {
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(header[len(bearerPrefix):])
}

// Authenticate resolves the bearer access token to a live session and
// attaches the identity to the request. Requests without a usable token pass
// through unauthenticated; RequireAuth decides whether that is acceptable.
// A valid token whose session no longer exists is answered as expired, except
// on exempt paths where the request continues unauthenticated.
func Authenticate(tokens *services.TokenService, tracker *services.SessionActivityTracker, cfg SessionActivityConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := extractBearer(c.GetHeader("Authorization"))
		if raw == "" {
			c.Next()
			return
		}

		ctx, span := otel.GetTracerProvider().Tracer("").Start(c.Request.Context(), "SessionAuthMiddleware")
		claims, err := tokens.ValidateAccessToken(raw)
		if err != nil {
			span.End()
			log.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("Ignoring invalid access token")
			c.Next()
			return
		}
		span.SetAttributes(attribute.String("session.id", claims.SessionID))

		session, err := tracker.LoadSession(ctx, claims.SessionID)
		span.End()
		if err != nil {
			if errors.Is(err, domain.ErrSessionNotFound) {
				if cfg.exempt(c.Request.URL.Path) {
					log.Debug().Str("sessionID", claims.SessionID).Str("path", c.Request.URL.Path).Msg("Ignoring token of ended session on exempt path")
					c.Next()
					return
				}
				metrics.UnknownSessionRejectionsTotal.Inc()
				audit.Log("SessionAuthMiddleware", "Authenticate", claims.Subject, c.ClientIP(),
					"Session "+claims.SessionID+" no longer exists", false, serrors.ErrSessionExpired)
				abortSessionExpired(c, cfg.LoginPath)
				return
			}
			AbortWithError(c, err)
			return
		}
		if session.UserID != claims.Subject {
			log.Warn().Str("sessionID", session.ID).Str("subject", claims.Subject).Msg("Token subject does not own session")
			c.Next()
			return
		}

		setIdentity(c, &domain.Identity{
			UserID:    session.UserID,
			SessionID: session.ID,
			Session:   session,
		})
		c.Next()
	}
}
