package service

import (
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Service 基础服务，包含数据库和配置
type Service struct {
	DB          *gorm.DB
	RDB         *redis.Client
	TablePrefix string

	// WsNotifier 用于向单个用户的全部在线连接推送消息的回调函数。
	// 避免循环依赖，通过函数注入的方式；推送是尽力而为，不影响主流程。
	WsNotifier func(userID uint64, message []byte)

	// RoleNotifier 按角色广播（teacher 全员在线连接）。同样尽力而为。
	RoleNotifier func(role string, message []byte)

	// Notify 通知服务（统一落库 + WS 推送 + HTTP 拉取）
	Notify *NotificationService

	// BroadcastTTL 广播请求的存活时长；>0 时写入 expires_at，
	// 由宿主的清扫任务调用 CloseExpiredBroadcasts 收尾。0 表示不过期。
	BroadcastTTL time.Duration
}

// Table 获取带前缀的表名
func (s *Service) Table(name string) *gorm.DB {
	return s.DB.Table(name)
}

// pushToUser WS 单播，未注入或用户不在线时静默跳过
func (s *Service) pushToUser(userID uint64, msg []byte) {
	if s.WsNotifier == nil || len(msg) == 0 {
		return
	}
	s.WsNotifier(userID, msg)
}

// pushToRole WS 按角色广播
func (s *Service) pushToRole(role string, msg []byte) {
	if s.RoleNotifier == nil || len(msg) == 0 {
		return
	}
	s.RoleNotifier(role, msg)
}
