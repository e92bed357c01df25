package middleware

import (
	"github.com/gin-gonic/gin"
	serrors "github.com/pilab-dev/homefin-auth/errors"
)

// RequireAuth rejects requests that Authenticate did not attach an identity to.
// It must run after Authenticate.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetIdentity(c); !ok {
			AbortWithError(c, serrors.ErrUnauthenticated)
			return
		}
		c.Next()
	}
}
