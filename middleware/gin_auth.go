package middleware

import (
	"net/http"
	"strings"

	"github.com/cydxin/match-sdk/response"
	"github.com/cydxin/match-sdk/service"
	"github.com/gin-gonic/gin"
)

const (
	// ContextUserIDKey gin context 里保存 user id 的 key
	ContextUserIDKey = "user_id"
	// ContextRoleKey gin context 里保存角色的 key
	ContextRoleKey  = "role"
	ContextTokenKey = "token"
)

// AuthOptions 可选配置。
type AuthOptions struct {
	// HeaderKey 默认 Authorization
	HeaderKey string
	// QueryKey 默认 token
	QueryKey string
	// UserIDKey 默认 user_id
	UserIDKey string
	// RoleKey 默认 role
	RoleKey string
	// TokenKey 默认 token
	TokenKey string
}

func (o *AuthOptions) withDefaults() AuthOptions {
	out := AuthOptions{
		HeaderKey: "Authorization",
		QueryKey:  "token",
		UserIDKey: ContextUserIDKey,
		RoleKey:   ContextRoleKey,
		TokenKey:  ContextTokenKey,
	}
	if o == nil {
		return out
	}
	if o.HeaderKey != "" {
		out.HeaderKey = o.HeaderKey
	}
	if o.QueryKey != "" {
		out.QueryKey = o.QueryKey
	}
	if o.UserIDKey != "" {
		out.UserIDKey = o.UserIDKey
	}
	if o.RoleKey != "" {
		out.RoleKey = o.RoleKey
	}
	if o.TokenKey != "" {
		out.TokenKey = o.TokenKey
	}
	return out
}

/*
	GinAuthMiddleware Gin 鉴权中间件：

- 优先从 Authorization: Bearer <token> 读取
- 如果没有，再从 query 参数读取（默认 token=xxx）
- 校验 token -> (userID, role) 成功后写入 gin.Context

使用：router.Use(middleware.GinAuthMiddleware(authService, nil))
*/
func GinAuthMiddleware(auth *service.AuthService, opt *AuthOptions) gin.HandlerFunc {
	cfg := opt.withDefaults()

	return func(c *gin.Context) {
		if auth == nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
				Code: response.CodeInternalError,
				Msg:  "auth service is nil",
			})
			return
		}

		// 1) header bearer
		token := ""
		ah := strings.TrimSpace(c.GetHeader(cfg.HeaderKey))
		if ah != "" {
			parts := strings.SplitN(ah, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				token = strings.TrimSpace(parts[1])
			}
		}

		// 2) query fallback
		if token == "" {
			token = strings.TrimSpace(c.Query(cfg.QueryKey))
		}

		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Response{
				Code: response.CodeTokenInvalid,
				Msg:  "missing token",
			})
			return
		}

		id, err := auth.AuthenticateIdentity(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Response{
				Code: response.CodeTokenInvalid,
				Msg:  err.Error(),
			})
			return
		}

		c.Set(cfg.UserIDKey, id.UserID)
		c.Set(cfg.RoleKey, id.Role)
		c.Set(cfg.TokenKey, token)
		c.Next()
	}
}
