package match_sdk

import (
	"log"
	"net/http"
	"sync"

	"github.com/cydxin/match-sdk/middleware"
	model "github.com/cydxin/match-sdk/models"
	"github.com/cydxin/match-sdk/service"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

type MatchEngine struct {
	config *Config

	UserService         *service.UserService
	MatchService        *service.MatchService
	ConversationService *service.ConversationService
	NotificationService *service.NotificationService
	AuthService         *service.AuthService // 鉴权服务
	WsServer            *WsServer
}

var (
	Instance *MatchEngine
	once     sync.Once
)

// NewEngine 创建实例
// 使用选项模式传入配置，Option回调
func NewEngine(opts ...Option) *MatchEngine {
	once.Do(func() {
		c := &Config{
			TablePrefix: "mt_", // Default
		}
		for _, opt := range opts {
			opt(c)
		}

		Instance = &MatchEngine{config: c}

		// 初始化 WS：注册表由 engine 持有并注入，不做包级全局
		Instance.WsServer = NewWsServer()

		// 初始化基础 Service，注入 WS 推送回调
		baseService := &service.Service{
			DB:           c.DB,
			RDB:          c.RDB,
			TablePrefix:  c.TablePrefix,
			WsNotifier:   Instance.WsServer.SendToUser,
			RoleNotifier: Instance.WsServer.SendToRole,
			BroadcastTTL: c.BroadcastTTL,
		}
		baseService.Notify = service.NewNotificationService(baseService)

		// 初始化各个 Service
		Instance.NotificationService = baseService.Notify
		Instance.UserService = service.NewUserService(baseService)
		Instance.ConversationService = service.NewConversationService(baseService)
		Instance.MatchService = service.NewMatchService(baseService, Instance.ConversationService)
		Instance.AuthService = service.NewAuthService(c.RDB, c.DB) // 初始化鉴权服务

		// 迁移表
		if err := Instance.AutoMigrate(); err != nil {
			log.Printf("AutoMigrate failed: %v", err)
		}

		// 绑定上行消息分发表，再启动注册循环
		Instance.bindWsHandlers()
		go Instance.WsServer.Run()
	})

	return Instance
}

func (c *MatchEngine) AutoMigrate() error {
	db := c.config.DB
	log.Println("AutoMigrate...")
	return db.AutoMigrate(
		&model.User{},
		&model.BroadcastRequest{},
		&model.BroadcastResponder{},
		&model.Conversation{},
		&model.ConversationMember{},
		&model.Message{},
		&model.Notification{},
	)
}

// ServeWS 处理 WebSocket 请求。
// 先走 token 鉴权（Bearer 或 ?token=），拿到身份才升级连接；
// 凭证缺失/无效直接 401 断开，连接不会进入注册表。
func (c *MatchEngine) ServeWS(w http.ResponseWriter, r *http.Request) {
	id, _, err := c.AuthService.AuthenticateRequest(r.Context(), r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	c.WsServer.ServeWS(w, r, id.UserID, id.Role, id.Nickname, id.Avatar)
}

// HandleWS 返回 WebSocket 的Handler
func (c *MatchEngine) HandleWS() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.ServeWS(w, r)
	}
}

// GinAuthMiddleware 返回配置好的 Gin 鉴权中间件
// 使用 MatchEngine 内部的 AuthService
//
// 使用示例:
//
//	engine := match_sdk.NewEngine(...)
//	r := gin.Default()
//	r.Use(engine.GinAuthMiddleware(nil)) // 使用默认配置
func (c *MatchEngine) GinAuthMiddleware(opt *middleware.AuthOptions) gin.HandlerFunc {
	return middleware.GinAuthMiddleware(c.AuthService, opt)
}

// RDB 暴露底层 Redis 客户端（宿主做健康检查等用途）
func (c *MatchEngine) RDB() *redis.Client {
	return c.config.RDB
}
