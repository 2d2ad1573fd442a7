package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

type VerifyCodePurpose string

const (
	VerifyCodePurposeRegister VerifyCodePurpose = "register"
	VerifyCodePurposeLogin    VerifyCodePurpose = "login"
)

// VerifyCodeService 负责验证码的生成、存储与校验（Redis）。
// 不负责短信/邮件发送，调用方自行集成通道；SendCode 返回 code 便于发送与测试。
//
// Redis Key: mt:verify_code:{purpose}:{identifier}，TTL 默认 5 分钟。
// Cooldown Key: mt:verify_code_cd:{purpose}:{identifier}，默认 60 秒防刷。
// identifier 做 TrimSpace，邮箱统一小写；purpose 区分场景避免串码。
type VerifyCodeService struct {
	rdb *redis.Client

	ttl      time.Duration
	cooldown time.Duration
}

func NewVerifyCodeService(rdb *redis.Client) *VerifyCodeService {
	return &VerifyCodeService{
		rdb:      rdb,
		ttl:      5 * time.Minute,
		cooldown: 60 * time.Second,
	}
}

func (s *VerifyCodeService) ensure() error {
	if s == nil || s.rdb == nil {
		return fmt.Errorf("redis client is nil")
	}
	return nil
}

func (s *VerifyCodeService) normalizeIdentifier(identifier string) string {
	id := strings.TrimSpace(identifier)
	if strings.Contains(id, "@") {
		id = strings.ToLower(id)
	}
	return id
}

func (s *VerifyCodeService) codeKey(purpose VerifyCodePurpose, identifier string) string {
	return fmt.Sprintf("mt:verify_code:%s:%s", purpose, s.normalizeIdentifier(identifier))
}

func (s *VerifyCodeService) cooldownKey(purpose VerifyCodePurpose, identifier string) string {
	return fmt.Sprintf("mt:verify_code_cd:%s:%s", purpose, s.normalizeIdentifier(identifier))
}

func (s *VerifyCodeService) generate6Digits() (string, error) {
	upper := big.NewInt(1000000) // 0..999999
	n, err := rand.Int(rand.Reader, upper)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

type SendCodeResult struct {
	TTLSeconds int64  `json:"ttl_seconds"`
	Code       string `json:"code,omitempty"` // 冷却期内为空；是否透传给客户端由 handler 按 Debug 决定
}

// SendCode 生成验证码并写入 Redis。冷却期内不生成新码，返回剩余冷却时间。
func (s *VerifyCodeService) SendCode(ctx context.Context, purpose VerifyCodePurpose, identifier string) (*SendCodeResult, error) {
	if err := s.ensure(); err != nil {
		return nil, err
	}
	identifier = s.normalizeIdentifier(identifier)
	if identifier == "" {
		return nil, validationErr("identifier is required")
	}
	if purpose == "" {
		return nil, validationErr("purpose is required")
	}

	cdKey := s.cooldownKey(purpose, identifier)
	ok, err := s.rdb.SetNX(ctx, cdKey, "1", s.cooldown).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		// 冷却中仍视为成功，但不重发
		ttl, _ := s.rdb.TTL(ctx, cdKey).Result()
		return &SendCodeResult{TTLSeconds: int64(ttl.Seconds()), Code: ""}, nil
	}

	code, err := s.generate6Digits()
	if err != nil {
		return nil, err
	}
	if err := s.rdb.Set(ctx, s.codeKey(purpose, identifier), code, s.ttl).Err(); err != nil {
		return nil, err
	}

	return &SendCodeResult{TTLSeconds: int64(s.ttl.Seconds()), Code: code}, nil
}

// VerifyCode 校验验证码。成功会删除验证码 key（一次性）。
func (s *VerifyCodeService) VerifyCode(ctx context.Context, purpose VerifyCodePurpose, identifier string, code string) (bool, error) {
	if err := s.ensure(); err != nil {
		return false, err
	}
	identifier = s.normalizeIdentifier(identifier)
	code = strings.TrimSpace(code)
	if identifier == "" || purpose == "" || code == "" {
		return false, validationErr("identifier, purpose and code are required")
	}

	key := s.codeKey(purpose, identifier)
	val, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	if strings.TrimSpace(val) != code {
		return false, nil
	}
	_ = s.rdb.Del(ctx, key).Err()
	return true, nil
}
