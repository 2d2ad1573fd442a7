package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/cydxin/match-sdk/models"
	"github.com/cydxin/match-sdk/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserService 用户：注册/登录/查询。
// 同时作为身份与角色提供方：HTTP 入口和 WS 建连都走同一套 token 校验。
type UserService struct {
	*Service

	userDao           *repository.UserDAO
	tokenService      *TokenService
	verifyCodeService *VerifyCodeService

	loginTokenTTL time.Duration
}

func NewUserService(s *Service) *UserService {
	log.Println("NewUserService")
	return &UserService{
		Service:           s,
		userDao:           repository.NewUserDAO(s.DB),
		tokenService:      NewTokenService(s.RDB),
		verifyCodeService: NewVerifyCodeService(s.RDB),
		loginTokenTTL:     defaultTokenTTL,
	}
}

// UserDTO 对外用户信息（不含密码）
type UserDTO struct {
	ID       uint64 `json:"id"`
	UID      string `json:"uid"`
	Username string `json:"username"`
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar,omitempty"`
	Role     string `json:"role"`
	Status   uint8  `json:"status"`
}

func toUserDTO(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:       u.ID,
		UID:      u.UID,
		Username: u.Username,
		Nickname: u.Nickname,
		Avatar:   u.Avatar,
		Role:     u.Role,
		Status:   u.Status,
	}
}

type RegisterReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Nickname string `json:"nickname"`
	Role     string `json:"role" binding:"required"` // student / teacher
	Code     string `json:"code"`                    // 验证码（配置了 Redis 时必填）
}

type LoginReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResp struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

// Register 注册（验证码校验 + 写库）
func (s *UserService) Register(ctx context.Context, req RegisterReq) (*UserDTO, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, validationErr("username is required")
	}
	password := strings.TrimSpace(req.Password)
	if password == "" {
		return nil, validationErr("password is required")
	}
	role := strings.TrimSpace(req.Role)
	if role != models.RoleStudent && role != models.RoleTeacher {
		return nil, validationErr("role must be %s or %s", models.RoleStudent, models.RoleTeacher)
	}

	// 配置了 Redis 才强制验证码；没配时跳过（宿主自行决定注册门槛）
	if s.RDB != nil {
		code := strings.TrimSpace(req.Code)
		if code == "" {
			return nil, validationErr("verification code is required")
		}
		ok, err := s.verifyCodeService.VerifyCode(ctx, VerifyCodePurposeRegister, username, code)
		if err != nil {
			return nil, dependencyErr(err)
		}
		if !ok {
			return nil, validationErr("invalid verification code")
		}
	}

	if _, err := s.userDao.FindByUsername(username); err == nil {
		return nil, conflictErr("username %s already exists", username)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, dependencyErr(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &models.User{
		Username:  username,
		Nickname:  strings.TrimSpace(req.Nickname),
		Password:  string(hash),
		Role:      role,
		Status:    models.UserStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if user.Nickname == "" {
		user.Nickname = user.Username
	}

	if err := s.userDao.Create(user); err != nil {
		return nil, dependencyErr(err)
	}
	return toUserDTO(user), nil
}

// LoginWithToken 登录并写 Redis token，返回 token + 用户信息
func (s *UserService) LoginWithToken(ctx context.Context, req LoginReq) (*LoginResp, error) {
	username := strings.TrimSpace(req.Username)
	password := strings.TrimSpace(req.Password)
	if username == "" || password == "" {
		return nil, validationErr("username and password are required")
	}

	u, err := s.userDao.FindByUsername(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, authErr("invalid username or password")
		}
		return nil, dependencyErr(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return nil, authErr("invalid username or password")
	}
	if u.Status != models.UserStatusActive {
		return nil, authErr("account is suspended")
	}

	now := time.Now()
	_ = s.userDao.UpdateLastLogin(u.ID, now)

	resp := &LoginResp{User: *toUserDTO(u)}

	if s.RDB == nil {
		// 没配 Redis 时无法签发 token，宿主只能用自己的会话体系
		return resp, nil
	}

	token, err := s.tokenService.GenerateToken()
	if err != nil {
		return nil, err
	}
	if err := s.tokenService.StoreToken(ctx, token, u.ID, s.loginTokenTTL); err != nil {
		return nil, dependencyErr(err)
	}
	resp.Token = token
	return resp, nil
}

// Logout 注销当前 token
func (s *UserService) Logout(ctx context.Context, token string) error {
	if s.RDB == nil {
		return nil
	}
	uid, err := s.tokenService.GetUserIDByToken(ctx, token)
	if err == nil {
		_ = s.tokenService.RemoveUserToken(ctx, uid, token)
	}
	return s.tokenService.RevokeToken(ctx, token)
}

// GetUser 查询用户
func (s *UserService) GetUser(userID uint64) (*UserDTO, error) {
	u, err := s.userDao.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundErr("user %d", userID)
		}
		return nil, dependencyErr(err)
	}
	return toUserDTO(u), nil
}
