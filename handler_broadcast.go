package match_sdk

import (
	"net/http"
	"strconv"

	"github.com/cydxin/match-sdk/response"
	"github.com/gin-gonic/gin"
)

// -------------------- 广播抢单（Broadcast）相关接口 --------------------

type CreateBroadcastReq struct {
	Content     string   `json:"content" binding:"required" example:"求一节高数辅导，今晚八点"` // 需求描述
	Attachments []string `json:"attachments"`                                      // 附件 URL 列表，可空
}

// GinHandleCreateBroadcast 发布广播需求
// @Summary 发布广播需求
// @Description 学生发布需求，扇出给全部在册老师，等待抢单
// @Tags 广播
// @Accept json
// @Produce json
// @Param req body CreateBroadcastReq true "需求内容"
// @Success 200 {object} response.Response{data=service.BroadcastDTO} "发布成功"
// @Failure 400 {object} response.Response "请求错误"
// @Security BearerAuth
// @Router /broadcast/create [post]
func (c *MatchEngine) GinHandleCreateBroadcast(ctx *gin.Context) {
	var req CreateBroadcastReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}

	uid, ok := currentUserID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, response.Error(response.CodeTokenInvalid, "user_id not found"))
		return
	}

	dto, err := c.MatchService.CreateBroadcast(uid, req.Content, req.Attachments)
	if err != nil {
		replyErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, response.Success(dto))
}

type BroadcastDecisionReq struct {
	RequestID uint64 `json:"request_id" binding:"required" example:"1"` // 广播请求 ID
}

// GinHandleAcceptBroadcast 抢单
// @Summary 接受广播需求（抢单）
// @Description 老师抢单；同一需求只有第一个人成功，成功即建立 1v1 会话，其余人收到状态冲突
// @Tags 广播
// @Accept json
// @Produce json
// @Param req body BroadcastDecisionReq true "抢单请求"
// @Success 200 {object} response.Response{data=service.AcceptResult} "抢单成功（带会话与首条消息）"
// @Failure 400 {object} response.Response "请求错误"
// @Security BearerAuth
// @Router /broadcast/accept [post]
func (c *MatchEngine) GinHandleAcceptBroadcast(ctx *gin.Context) {
	var req BroadcastDecisionReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}

	uid, ok := currentUserID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, response.Error(response.CodeTokenInvalid, "user_id not found"))
		return
	}

	ret, err := c.MatchService.AcceptBroadcast(uid, req.RequestID)
	if err != nil {
		replyErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, response.Success(ret))
}

// GinHandleDeclineBroadcast 拒单
// @Summary 拒绝广播需求
// @Description 老师拒单；拒绝是终态，不可再抢。全部拒绝时需求关闭并通知学生
// @Tags 广播
// @Accept json
// @Produce json
// @Param req body BroadcastDecisionReq true "拒单请求"
// @Success 200 {object} response.Response "拒单成功"
// @Failure 400 {object} response.Response "请求错误"
// @Security BearerAuth
// @Router /broadcast/decline [post]
func (c *MatchEngine) GinHandleDeclineBroadcast(ctx *gin.Context) {
	var req BroadcastDecisionReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}

	uid, ok := currentUserID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, response.Error(response.CodeTokenInvalid, "user_id not found"))
		return
	}

	allDeclined, err := c.MatchService.DeclineBroadcast(uid, req.RequestID)
	if err != nil {
		replyErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, response.Success(map[string]any{
		"all_declined": allDeclined,
	}))
}

// GinHandleListPendingBroadcasts 待处理广播列表
// @Summary 待处理广播列表
// @Description 老师查询自己名下仍可抢的需求（离线期间的扇出也在这里补看）
// @Tags 广播
// @Accept json
// @Produce json
// @Param limit query int false "返回条数，默认 50"
// @Success 200 {object} response.Response{data=[]service.BroadcastDTO} "需求列表"
// @Failure 401 {object} response.Response "未登录"
// @Security BearerAuth
// @Router /broadcast/pending [get]
func (c *MatchEngine) GinHandleListPendingBroadcasts(ctx *gin.Context) {
	uid, ok := currentUserID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, response.Error(response.CodeTokenInvalid, "user_id not found"))
		return
	}

	limit, _ := strconv.Atoi(ctx.Query("limit"))

	list, err := c.MatchService.ListPendingForResponder(uid, limit)
	if err != nil {
		replyErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, response.Success(list))
}

// GinHandleGetBroadcast 查询广播详情
// @Summary 查询广播详情
// @Description 发布者或被扇出的老师查询需求当前状态
// @Tags 广播
// @Accept json
// @Produce json
// @Param request_id query uint64 true "广播请求 ID"
// @Success 200 {object} response.Response{data=service.BroadcastDTO} "需求详情"
// @Failure 400 {object} response.Response "参数错误"
// @Security BearerAuth
// @Router /broadcast/info [get]
func (c *MatchEngine) GinHandleGetBroadcast(ctx *gin.Context) {
	uid, ok := currentUserID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, response.Error(response.CodeTokenInvalid, "user_id not found"))
		return
	}

	requestID, err := strconv.ParseUint(ctx.Query("request_id"), 10, 64)
	if err != nil || requestID == 0 {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, "invalid request_id"))
		return
	}

	dto, err := c.MatchService.GetBroadcast(uid, requestID)
	if err != nil {
		replyErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, response.Success(dto))
}
