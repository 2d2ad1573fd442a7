package match_sdk

import (
	"errors"
	"net/http"

	"github.com/cydxin/match-sdk/response"
	"github.com/cydxin/match-sdk/service"
	"github.com/gin-gonic/gin"
)

/* @title           Match SDK API
@version         1.0
@description     Match SDK API documentation
@host            localhost:6789
@BasePath        /api/v1
@securityDefinitions.apikey BearerAuth
@in header
@name Authorization
*/

/* This file holds the shared handler helpers; the endpoints live in:
- handler_user.go
- handler_broadcast.go
- handler_conversation.go
- handler_notification.go
*/

// currentUserID 从 Gin Context 取当前登录用户 ID（由 GinAuthMiddleware 写入）
func currentUserID(ctx *gin.Context) (uint64, bool) {
	v, exists := ctx.Get("user_id")
	if !exists {
		return 0, false
	}
	switch id := v.(type) {
	case uint64:
		return id, true
	case float64: // 有些 JSON 解析可能会变成 float64
		return uint64(id), true
	case int:
		return uint64(id), true
	default:
		return 0, false
	}
}

// codeForErr 业务错误 -> 业务状态码
func codeForErr(err error) int {
	switch {
	case err == nil:
		return response.CodeSuccess
	case errors.Is(err, service.ErrNoEligibleResponders):
		return response.CodeNoResponders
	case errors.Is(err, service.ErrValidation):
		return response.CodeParamError
	case errors.Is(err, service.ErrNotFound):
		return response.CodeNotFound
	case errors.Is(err, service.ErrStateConflict):
		return response.CodeStateConflict
	case errors.Is(err, service.ErrAuthorization):
		return response.CodePermissionDeny
	default:
		return response.CodeInternalError
	}
}

// replyErr 业务层统一返回 200 + 业务码
func replyErr(ctx *gin.Context, err error) {
	ctx.JSON(http.StatusOK, response.Error(codeForErr(err), err.Error()))
}
