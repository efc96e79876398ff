package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"dog-catalog/internal/core/auth"
	resp "dog-catalog/internal/transport/http/response"
)

const (
	KeyIdentity   = "identity"
	DefaultCookie = "session"
)

// Session 每个请求都尝试还原会话：先读 Cookie，再读 Bearer。
// 令牌无效或过期时按匿名处理，是否拒绝由具体路由决定。
func Session(j *auth.JWTer, cookieName string) gin.HandlerFunc {
	if cookieName == "" {
		cookieName = DefaultCookie
	}
	return func(c *gin.Context) {
		if tok := TokenFrom(c, cookieName); tok != "" {
			if claims, err := j.Parse(tok); err == nil {
				c.Set(KeyIdentity, claims.Identity())
			}
		}
		c.Next()
	}
}

func TokenFrom(c *gin.Context, cookieName string) string {
	if v, err := c.Cookie(cookieName); err == nil && v != "" {
		return v
	}
	if ah := c.GetHeader("Authorization"); strings.HasPrefix(ah, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(ah, "Bearer "))
	}
	return ""
}

// IdentityFrom returns the caller's verified identity, if any.
func IdentityFrom(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(KeyIdentity)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok
}

// RequireAuth 未登录返回 401
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := IdentityFrom(c); !ok {
			resp.Abort(c, http.StatusUnauthorized, "authentication required")
			return
		}
		c.Next()
	}
}

// RequireRole 未登录 401；已登录但角色不在 roles 中 403。两者都拒绝访问。
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok {
			resp.Abort(c, http.StatusUnauthorized, "authentication required")
			return
		}
		if !slices.Contains(roles, id.Role) {
			resp.Abort(c, http.StatusForbidden, strings.Join(roles, "/")+" role required")
			return
		}
		c.Next()
	}
}
