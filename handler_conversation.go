package match_sdk

import (
	"net/http"
	"strconv"

	"github.com/cydxin/match-sdk/response"
	"github.com/gin-gonic/gin"
)

// -------------------- 会话（Conversation）相关接口 --------------------

// GinHandleGetConversationList 获取会话列表
// @Summary 获取会话列表
// @Description 返回当前用户全部 1v1 会话，带对端信息、最后一条消息和未读数
// @Tags 会话
// @Accept json
// @Produce json
// @Success 200 {object} response.Response{data=[]service.ConversationDTO} "会话列表"
// @Failure 401 {object} response.Response "未登录"
// @Security BearerAuth
// @Router /conversation/list [get]
func (c *MatchEngine) GinHandleGetConversationList(ctx *gin.Context) {
	uid, ok := currentUserID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, response.Error(response.CodeTokenInvalid, "user_id not found"))
		return
	}

	list, err := c.ConversationService.GetConversationList(uid)
	if err != nil {
		replyErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, response.Success(list))
}

type SendMessageReq struct {
	ConversationID uint64   `json:"conversation_id" binding:"required" example:"1"` // 会话 ID
	Content        string   `json:"content" binding:"required" example:"老师好"`       // 消息内容
	Attachments    []string `json:"attachments"`                                    // 附件 URL 列表，可空
}

// GinHandleSendMessage 发送消息
// @Summary 发送消息
// @Description 在会话内发消息，仅会话成员可发；对端在线则实时推送
// @Tags 会话
// @Accept json
// @Produce json
// @Param req body SendMessageReq true "消息内容"
// @Success 200 {object} response.Response{data=service.MessageDTO} "发送成功"
// @Failure 400 {object} response.Response "请求错误"
// @Security BearerAuth
// @Router /conversation/message/send [post]
func (c *MatchEngine) GinHandleSendMessage(ctx *gin.Context) {
	var req SendMessageReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}

	uid, ok := currentUserID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, response.Error(response.CodeTokenInvalid, "user_id not found"))
		return
	}

	dto, err := c.ConversationService.SendMessage(uid, req.ConversationID, req.Content, req.Attachments)
	if err != nil {
		replyErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, response.Success(dto))
}

// GinHandleListMessages 拉取历史消息
// @Summary 拉取历史消息
// @Description 游标分页，cursor 传上一页最旧一条的 message id，0 表示从最新开始
// @Tags 会话
// @Accept json
// @Produce json
// @Param conversation_id query uint64 true "会话 ID"
// @Param cursor query uint64 false "分页游标"
// @Param limit query int false "返回条数，默认 20"
// @Success 200 {object} response.Response{data=[]service.MessageDTO} "消息列表"
// @Failure 400 {object} response.Response "参数错误"
// @Security BearerAuth
// @Router /conversation/message/history [get]
func (c *MatchEngine) GinHandleListMessages(ctx *gin.Context) {
	uid, ok := currentUserID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, response.Error(response.CodeTokenInvalid, "user_id not found"))
		return
	}

	convID, err := strconv.ParseUint(ctx.Query("conversation_id"), 10, 64)
	if err != nil || convID == 0 {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, "invalid conversation_id"))
		return
	}

	cursor, _ := strconv.ParseUint(ctx.Query("cursor"), 10, 64)
	limit, _ := strconv.Atoi(ctx.Query("limit"))

	list, nextCursor, err := c.ConversationService.ListMessages(uid, convID, cursor, limit)
	if err != nil {
		replyErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, response.Success(map[string]any{
		"list":        list,
		"next_cursor": nextCursor,
	}))
}

type MarkReadReq struct {
	ConversationID uint64 `json:"conversation_id" binding:"required" example:"1"` // 会话 ID
}

// GinHandleMarkConversationRead 会话已读
// @Summary 会话已读
// @Description 清零当前用户在该会话的未读数
// @Tags 会话
// @Accept json
// @Produce json
// @Param req body MarkReadReq true "已读请求"
// @Success 200 {object} response.Response "成功响应"
// @Failure 400 {object} response.Response "请求错误"
// @Security BearerAuth
// @Router /conversation/read [post]
func (c *MatchEngine) GinHandleMarkConversationRead(ctx *gin.Context) {
	var req MarkReadReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}

	uid, ok := currentUserID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, response.Error(response.CodeTokenInvalid, "user_id not found"))
		return
	}

	if err := c.ConversationService.MarkConversationRead(uid, req.ConversationID); err != nil {
		replyErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, response.Success(nil))
}
