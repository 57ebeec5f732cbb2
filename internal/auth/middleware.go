package auth

import (
	"controltower/internal/apperr"
	"controltower/pkg/response"

	"github.com/gin-gonic/gin"
)

const identityContextKey = "auth.identity"

// Require 认证 + 角色检查中间件
func (a *Authenticator) Require(requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := a.Authenticate(
			c.Request.Context(),
			c.GetHeader("X-API-Key"),
			c.GetHeader("Authorization"),
		)
		if err != nil {
			response.HandleError(c, err)
			c.Abort()
			return
		}

		if !identity.Satisfies(requiredRole) {
			response.HandleError(c, apperr.Forbiddenf("%s role required", requiredRole))
			c.Abort()
			return
		}

		c.Set(identityContextKey, identity)
		c.Next()
	}
}

// IdentityFrom 取出当前请求的认证身份
func IdentityFrom(c *gin.Context) *Identity {
	v, exists := c.Get(identityContextKey)
	if !exists {
		return nil
	}
	identity, _ := v.(*Identity)
	return identity
}
