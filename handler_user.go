package match_sdk

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/cydxin/match-sdk/response"
	"github.com/cydxin/match-sdk/service"
	"github.com/gin-gonic/gin"
)

// -------------------- 用户（User）相关接口 --------------------

// GinHandleUserRegister 用户注册
// @Summary 用户注册
// @Description 创建新用户账号：username + password + nickname + role（student/teacher）
// @Tags 用户
// @Accept json
// @Produce json
// @Param req body service.RegisterReq true "注册信息"
// @Success 200 {object} response.Response{data=service.UserDTO} "注册成功"
// @Failure 400 {object} response.Response "请求错误"
// @Router /user/register [post]
func (c *MatchEngine) GinHandleUserRegister(ctx *gin.Context) {
	var req service.RegisterReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}

	u, err := c.UserService.Register(ctx.Request.Context(), req)
	if err != nil {
		replyErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, response.Success(u))
}

// GinHandleUserLogin 用户登录
// @Summary 用户登录
// @Description 用户名密码登录并返回 token
// @Tags 用户
// @Accept json
// @Produce json
// @Param req body service.LoginReq true "登录信息"
// @Success 200 {object} response.Response{data=service.LoginResp} "登录响应（token + 用户信息）"
// @Failure 401 {object} response.Response "认证失败"
// @Router /user/login [post]
func (c *MatchEngine) GinHandleUserLogin(ctx *gin.Context) {
	var req service.LoginReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeParamError, err.Error()))
		return
	}

	resp, err := c.UserService.LoginWithToken(ctx.Request.Context(), req)
	if err != nil {
		replyErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, response.Success(resp))
}

// GinHandleUserLogout 退出登录
// @Summary 退出登录
// @Description 作废当前请求携带的 token
// @Tags 用户
// @Accept json
// @Produce json
// @Success 200 {object} response.Response "成功响应"
// @Security BearerAuth
// @Router /user/logout [post]
func (c *MatchEngine) GinHandleUserLogout(ctx *gin.Context) {
	token, exists := ctx.Get("token")
	if !exists {
		ctx.JSON(http.StatusUnauthorized, response.Error(response.CodeTokenInvalid, "token not found"))
		return
	}

	if err := c.UserService.Logout(ctx.Request.Context(), token.(string)); err != nil {
		replyErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, response.Success(nil))
}

// GinHandleGetUserInfo 获取用户信息
// @Summary 获取用户信息
// @Description 根据 user_id 查询用户详情，如果不传 user_id 则查询当前登录用户
// @Tags 用户
// @Accept json
// @Produce json
// @Param user_id query uint64 false "用户ID (不传则查自己)"
// @Success 200 {object} response.Response{data=service.UserDTO} "查询成功"
// @Failure 400 {object} response.Response "参数错误"
// @Failure 401 {object} response.Response "未登录"
// @Security BearerAuth
// @Router /user/info [get]
func (c *MatchEngine) GinHandleGetUserInfo(ctx *gin.Context) {
	userIDStr := ctx.Query("user_id")
	var targetUserID uint64

	if userIDStr != "" {
		id, err := strconv.ParseUint(userIDStr, 10, 64)
		if err != nil || id == 0 {
			ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, "invalid user_id"))
			return
		}
		targetUserID = id
	} else {
		uid, ok := currentUserID(ctx)
		if !ok {
			ctx.JSON(http.StatusUnauthorized, response.Error(response.CodeTokenInvalid, "user_id not found in context"))
			return
		}
		targetUserID = uid
	}

	u, err := c.UserService.GetUser(targetUserID)
	if err != nil {
		replyErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, response.Success(u))
}

// --- 验证码 ---

type SendVerifyCodeReq struct {
	Purpose    string `json:"purpose" binding:"required" example:"register"`       // register/login
	Identifier string `json:"identifier" binding:"required" example:"13800138000"` // 手机号或邮箱
}

// GinHandleSendVerifyCode 发送验证码（写入 Redis；实际短信/邮件发送由调用方对接）
// @Summary 发送验证码
// @Description 发送验证码到手机号/邮箱（identifier=手机号/邮箱），purpose=register/login
// @Tags 用户
// @Accept json
// @Produce json
// @Param req body SendVerifyCodeReq true "发送验证码请求"
// @Success 200 {object} response.Response{data=service.SendCodeResult} "发送成功"
// @Failure 400 {object} response.Response "请求错误"
// @Router /user/code/send [post]
func (c *MatchEngine) GinHandleSendVerifyCode(ctx *gin.Context) {
	var req SendVerifyCodeReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}
	if c.config == nil || c.config.RDB == nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, "redis 服务暂未开启"))
		return
	}

	purpose := service.VerifyCodePurpose(strings.TrimSpace(req.Purpose))
	svc := service.NewVerifyCodeService(c.config.RDB)
	ret, err := svc.SendCode(ctx.Request.Context(), purpose, req.Identifier)
	if err != nil {
		replyErr(ctx, err)
		return
	}
	// 非 Debug 环境不返回验证码
	if c.config == nil || !c.config.Service.Debug {
		ret.Code = ""
	}
	ctx.JSON(http.StatusOK, response.Success(ret))
}
