package main

import (
	"log"
	"time"

	match_sdk "github.com/cydxin/match-sdk"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func main() {
	// 1. 初始化数据库连接
	dsn := "root:password@tcp(127.0.0.1:3306)/match_db?charset=utf8mb4&parseTime=True&loc=Local"
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("数据库连接失败:", err)
	}

	// 2. 初始化 Redis（Token 认证、验证码依赖它）
	rdb := redis.NewClient(&redis.Options{
		Addr: "127.0.0.1:6379",
	})

	// 3. 初始化 Match Engine（单例模式，全局只需调用一次）
	engine := match_sdk.NewEngine(
		match_sdk.WithDB(db),
		match_sdk.WithRDB(rdb),
		match_sdk.WithTablePrefix("mt_"),        // 自定义表前缀
		match_sdk.WithBroadcastTTL(2*time.Hour), // 广播 2 小时没人接就过期
		match_sdk.WithServiceDebug(true),        // Debug 下验证码直接回传，方便联调
	)

	// 4. 广播过期巡检：到期仍无人接单的需求置为 expired 并通知发布者
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			if n, err := engine.MatchService.CloseExpiredBroadcasts(time.Now()); err != nil {
				log.Printf("巡检过期广播失败: %v", err)
			} else if n > 0 {
				log.Printf("巡检关闭过期广播 %d 条", n)
			}
		}
	}()

	// 5. 创建 Gin 路由
	r := gin.Default()

	// 设置 CORS（如果需要）
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// 注册 Swagger UI
	match_sdk.RegisterSwagger(r, "/swagger/*any")

	// 6. WebSocket 连接路由
	// 客户端连接：ws://localhost:8080/ws?token=YOUR_TOKEN
	// 鉴权失败直接 401，不会升级连接
	r.GET("/ws", gin.WrapF(engine.HandleWS()))

	// 7. API 路由组
	api := r.Group("/api/v1")

	// 用户模块（注册/登录/验证码不需要登录态）
	userAPI := api.Group("/user")
	{
		userAPI.POST("/register", engine.GinHandleUserRegister)
		userAPI.POST("/login", engine.GinHandleUserLogin)
		userAPI.POST("/code/send", engine.GinHandleSendVerifyCode)
	}

	// 需要登录态的接口统一挂鉴权中间件
	authed := api.Group("")
	authed.Use(engine.GinAuthMiddleware(nil))
	{
		authed.POST("/user/logout", engine.GinHandleUserLogout)
		authed.GET("/user/info", engine.GinHandleGetUserInfo)

		// 广播抢单模块
		authed.POST("/broadcast/create", engine.GinHandleCreateBroadcast)
		authed.POST("/broadcast/accept", engine.GinHandleAcceptBroadcast)
		authed.POST("/broadcast/decline", engine.GinHandleDeclineBroadcast)
		authed.GET("/broadcast/pending", engine.GinHandleListPendingBroadcasts)
		authed.GET("/broadcast/info", engine.GinHandleGetBroadcast)

		// 会话模块
		authed.GET("/conversation/list", engine.GinHandleGetConversationList)
		authed.POST("/conversation/message/send", engine.GinHandleSendMessage)
		authed.GET("/conversation/message/history", engine.GinHandleListMessages)
		authed.POST("/conversation/read", engine.GinHandleMarkConversationRead)

		// 通知模块
		authed.GET("/notification/list", engine.GinHandleListNotifications)
		authed.POST("/notification/read", engine.GinHandleMarkNotificationsRead)
	}

	// 8. 启动服务器
	log.Println("Match Server 启动在 :8080")
	log.Println("Swagger UI: http://localhost:8080/swagger/index.html")
	log.Println("WebSocket 地址: ws://localhost:8080/ws?token=YOUR_TOKEN")
	if err := r.Run(":8080"); err != nil {
		log.Fatal("服务器启动失败:", err)
	}
}
