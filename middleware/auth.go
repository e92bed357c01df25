package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pilab-dev/homefin-auth/domain"
	serrors "github.com/pilab-dev/homefin-auth/errors"
	"github.com/rs/zerolog/log"
)

// IdentityKey is the gin context key holding the *domain.Identity.
const IdentityKey = "auth-identity"

// GetIdentity returns the identity attached by Authenticate.
func GetIdentity(c *gin.Context) (*domain.Identity, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return nil, false
	}
	id, ok := v.(*domain.Identity)
	return id, ok && id != nil
}

func setIdentity(c *gin.Context, id *domain.Identity) {
	c.Set(IdentityKey, id)
	c.Request = c.Request.WithContext(domain.WithIdentity(c.Request.Context(), id))
}

// AbortWithError writes err as {error_code, message} with the mapped status.
// Anything that is not an AuthError is logged and hidden behind server_error.
func AbortWithError(c *gin.Context, err error) {
	authErr := serrors.AsAuthError(err)
	if authErr.Code == serrors.ServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(serrors.HTTPStatus(authErr), authErr)
}

// IsAPIRequest reports whether the caller expects JSON instead of a redirect.
func IsAPIRequest(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}

// abortSessionExpired answers API callers with session_expired and sends
// browsers to the login page, remembering where they were.
func abortSessionExpired(c *gin.Context, loginPath string) {
	if IsAPIRequest(c) || loginPath == "" {
		AbortWithError(c, serrors.ErrSessionExpired)
		return
	}
	target := loginPath + "?next=" + url.QueryEscape(c.Request.URL.RequestURI())
	c.Redirect(http.StatusFound, target)
	c.Abort()
}
