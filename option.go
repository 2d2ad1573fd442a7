package match_sdk

import (
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type ServiceConfig struct {
	Debug bool
}

type Config struct {
	DB          *gorm.DB
	RDB         *redis.Client
	TablePrefix string
	Service     ServiceConfig

	// BroadcastTTL 广播请求的存活时长；>0 时写入 expires_at，
	// 宿主的清扫任务调用 MatchService.CloseExpiredBroadcasts 收尾。
	BroadcastTTL time.Duration
}

type Option func(*Config)

func WithDB(db *gorm.DB) Option {
	return func(c *Config) {
		c.DB = db
	}
}

func WithTablePrefix(prefix string) Option {
	return func(c *Config) {
		c.TablePrefix = prefix
	}
}

func WithRDB(RDB *redis.Client) Option {
	return func(c *Config) {
		c.RDB = RDB
	}
}

func WithServiceDebug(debug bool) Option {
	return func(c *Config) {
		c.Service.Debug = debug
	}
}

// WithBroadcastTTL 配置广播请求的过期时长
func WithBroadcastTTL(ttl time.Duration) Option {
	return func(c *Config) {
		c.BroadcastTTL = ttl
	}
}
