package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/malina-auth/internal/domain/auth"
)

func authMiddleware(svc auth.Service, transport *SessionTransport) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := transport.AccessToken(c)
		if token == "" {
			abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing access token", nil))
			return
		}
		identity, err := svc.Authenticate(c.Request.Context(), token)
		if err != nil {
			abortWithError(c, authHTTPError(err))
			return
		}
		setIdentity(c, identity)
		c.Next()
	}
}
