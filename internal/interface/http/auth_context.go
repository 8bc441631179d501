package http

import (
	"github.com/gin-gonic/gin"

	"github.com/yanqian/malina-auth/internal/domain/auth"
)

const authIdentityKey = "auth_identity"

func setIdentity(c *gin.Context, identity auth.IdentityView) {
	c.Set(authIdentityKey, identity)
}

func getIdentity(c *gin.Context) (auth.IdentityView, bool) {
	value, ok := c.Get(authIdentityKey)
	if !ok {
		return auth.IdentityView{}, false
	}
	identity, ok := value.(auth.IdentityView)
	return identity, ok
}
