package service

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/cydxin/match-sdk/models"
	"github.com/cydxin/match-sdk/repository"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Identity 鉴权通过后的调用者身份
type Identity struct {
	UserID   uint64
	Role     string
	Nickname string
	Avatar   string
}

// AuthService 提供"鉴权核心能力"，供 HTTP 中间件与 WS 建连共用：
// - 解析 token（Bearer 优先，其次 query）
// - 校验 token -> userID（Redis），再从用户表取角色
// - 注销 token / 注销用户全部 token
//
// Gin 等框架的中间件作为单独适配层，内部调用该 service。
type AuthService struct {
	token   *TokenService
	userDao *repository.UserDAO
}

func NewAuthService(rdb *redis.Client, db *gorm.DB) *AuthService {
	var dao *repository.UserDAO
	if db != nil {
		dao = repository.NewUserDAO(db)
	}
	return &AuthService{token: NewTokenService(rdb), userDao: dao}
}

// ExtractToken 从 HTTP 请求中提取 token：优先 Authorization: Bearer，其次 query: token。
func (a *AuthService) ExtractToken(r *http.Request) string {
	if r == nil {
		return ""
	}

	// Authorization: Bearer <token>
	ah := strings.TrimSpace(r.Header.Get("Authorization"))
	if ah != "" {
		parts := strings.SplitN(ah, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	// query: ?token=xxx
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// Authenticate 根据 token 获取 userID。
func (a *AuthService) Authenticate(ctx context.Context, token string) (uint64, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, authErr("missing token")
	}
	uid, err := a.token.GetUserIDByToken(ctx, token)
	if err != nil {
		return 0, authErr("invalid token")
	}
	return uid, nil
}

// AuthenticateIdentity 校验 token 并取出用户角色等身份信息。
// 被停用的账号视同鉴权失败。
func (a *AuthService) AuthenticateIdentity(ctx context.Context, token string) (*Identity, error) {
	uid, err := a.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	if a.userDao == nil {
		return nil, dependencyErr(errors.New("user store not configured"))
	}
	u, err := a.userDao.FindByID(uid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, authErr("user %d not found", uid)
		}
		return nil, dependencyErr(err)
	}
	if u.Status != models.UserStatusActive {
		return nil, authErr("user %d is suspended", uid)
	}
	return &Identity{UserID: u.ID, Role: u.Role, Nickname: u.Nickname, Avatar: u.Avatar}, nil
}

// AuthenticateRequest 从请求里抽 token 并鉴权。
func (a *AuthService) AuthenticateRequest(ctx context.Context, r *http.Request) (*Identity, string, error) {
	t := a.ExtractToken(r)
	id, err := a.AuthenticateIdentity(ctx, t)
	return id, t, err
}

// RevokeToken 注销单个 token。
func (a *AuthService) RevokeToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	uid, err := a.token.GetUserIDByToken(ctx, token)
	if err == nil {
		_ = a.token.RemoveUserToken(ctx, uid, token)
	}
	return a.token.RevokeToken(ctx, token)
}

// RevokeAllTokensByUser 注销用户全部 token。
func (a *AuthService) RevokeAllTokensByUser(ctx context.Context, userID uint64) error {
	return a.token.RevokeAllTokensByUser(ctx, userID)
}
