package match_sdk

import (
	"net/http"
	"strconv"

	"github.com/cydxin/match-sdk/response"
	"github.com/gin-gonic/gin"
)

// -------------------- 通知（Notification）相关接口 --------------------

// GinHandleListNotifications 获取通知列表
// @Summary 获取通知列表
// @Description 游标分页拉取当前用户的通知，离线期间落库的通知也在这里
// @Tags 通知
// @Accept json
// @Produce json
// @Param since_days query int false "只看最近 N 天，默认 2"
// @Param cursor query uint64 false "分页游标（上一页最旧一条的 id）"
// @Param limit query int false "返回条数，默认 20"
// @Param unread_only query bool false "只看未读"
// @Success 200 {object} response.Response{data=[]service.NotificationDTO} "通知列表"
// @Failure 401 {object} response.Response "未登录"
// @Security BearerAuth
// @Router /notification/list [get]
func (c *MatchEngine) GinHandleListNotifications(ctx *gin.Context) {
	uid, ok := currentUserID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, response.Error(response.CodeTokenInvalid, "user_id not found"))
		return
	}

	sinceDays, _ := strconv.Atoi(ctx.Query("since_days"))
	cursor, _ := strconv.ParseUint(ctx.Query("cursor"), 10, 64)
	limit, _ := strconv.Atoi(ctx.Query("limit"))
	unreadOnly := ctx.Query("unread_only") == "true" || ctx.Query("unread_only") == "1"

	list, nextCursor, err := c.NotificationService.ListUserNotifications(uid, sinceDays, cursor, limit, unreadOnly)
	if err != nil {
		replyErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, response.Success(map[string]any{
		"list":        list,
		"next_cursor": nextCursor,
	}))
}

type MarkNotificationsReadReq struct {
	IDs []uint64 `json:"ids" binding:"required"` // 要标记已读的通知 ID 列表
}

// GinHandleMarkNotificationsRead 标记通知已读
// @Summary 标记通知已读
// @Description 将指定通知标记为已读，只能标记自己的
// @Tags 通知
// @Accept json
// @Produce json
// @Param req body MarkNotificationsReadReq true "已读请求"
// @Success 200 {object} response.Response "成功响应"
// @Failure 400 {object} response.Response "请求错误"
// @Security BearerAuth
// @Router /notification/read [post]
func (c *MatchEngine) GinHandleMarkNotificationsRead(ctx *gin.Context) {
	var req MarkNotificationsReadReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}

	uid, ok := currentUserID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, response.Error(response.CodeTokenInvalid, "user_id not found"))
		return
	}

	if err := c.NotificationService.MarkReadByIDs(uid, req.IDs); err != nil {
		replyErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, response.Success(nil))
}
