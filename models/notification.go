package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Notification 用户通知表（追加写入，作为 WS 推送之外的持久兜底）
// 用于：
// - 接单结果/关闭结果的可靠送达（WS 推送是尽力而为）
// - 离线/新设备通过 HTTP 拉取
//
// 与触发它的状态变更同事务落库：要么一起提交，要么都不存在。
type Notification struct {
	ID     uint64 `gorm:"primarykey"`
	UserID uint64 `gorm:"index:idx_user_created,priority:1;uniqueIndex:idx_notify_dedupe,priority:1;not null"` // 接收者
	// 同一用户对同一实体的同类通知只投递一次（idx_notify_dedupe），
	// 重试/并发重复写入靠 OnConflict DoNothing 落空。
	Type        string         `gorm:"size:64;uniqueIndex:idx_notify_dedupe,priority:2;not null"` // cons.Notify* 常量
	Content     string         `gorm:"size:500;not null"`                                         // 展示文案
	Payload     datatypes.JSON `gorm:"type:json"`                                                 // 附加数据（请求/会话 ID 等）
	ReferenceID uint64         `gorm:"uniqueIndex:idx_notify_dedupe,priority:3"`                  // 关联实体 ID（请求或会话）

	IsRead bool `gorm:"default:false;index"`
	ReadAt *time.Time

	CreatedAt time.Time      `gorm:"index:idx_user_created,priority:2"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (Notification) TableName() string { return prefix + "notification" }
