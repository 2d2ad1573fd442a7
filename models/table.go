package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	prefix = "mt_"
)

// 用户角色
const (
	RoleStudent = "student" // 发起求助请求
	RoleTeacher = "teacher" // 接单方
)

// 用户状态
const (
	UserStatusActive    = 1 // 正常
	UserStatusSuspended = 2 // 封禁/停用，不参与广播
)

// User 用户表
type User struct {
	ID           uint64     `gorm:"primarykey"`
	UID          string     `gorm:"size:36;uniqueIndex;not null"` // 对外用户 ID (UUID)
	Username     string     `gorm:"size:50;uniqueIndex;not null"` // 用户名
	Nickname     string     `gorm:"size:100;not null"`            // 昵称
	Password     string     `gorm:"size:255;not null"`            // 密码 (bcrypt)
	Avatar       string     `gorm:"size:500"`                     // 头像
	Role         string     `gorm:"size:20;index;not null"`       // 角色: student / teacher
	Status       uint8      `gorm:"type:tinyint;default:1"`       // 状态: 1-正常 2-停用
	LastLoginAt  *time.Time // 最后登录时间
	LastActiveAt *time.Time // 最后活跃时间
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

func (User) TableName() string {
	return prefix + "user"
}

// BeforeCreate 自动生成对外 UID
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UID == "" {
		u.UID = uuid.NewString()
	}
	return nil
}

// 广播请求状态
const (
	BroadcastStatePending  = "pending"  // 等待 teacher 接单
	BroadcastStateAccepted = "accepted" // 已被某个 teacher 接单（终态）
	BroadcastStateClosed   = "closed"   // 全部拒绝后关闭（终态）
	BroadcastStateExpired  = "expired"  // 超时未接单，由外部清扫任务关闭（终态）
)

// BroadcastRequest 广播请求表：student 发起的一次公开求助。
// 不变式：accepted_by 非空 当且仅当 state=accepted。
type BroadcastRequest struct {
	ID          uint64         `gorm:"primarykey"`
	RequestUUID string         `gorm:"size:36;uniqueIndex;not null"`           // 对外请求 ID
	RequesterID uint64         `gorm:"index;not null"`                         // 发起人 (student)
	Content     string         `gorm:"type:text;not null"`                     // 求助内容，接单后作为会话首条消息
	Attachments datatypes.JSON `gorm:"type:json"`                              // 附件 URL 列表
	State       string         `gorm:"size:16;index;default:pending;not null"` // pending / accepted / closed / expired
	AcceptedBy  *uint64        `gorm:"index"`                                  // 接单的 teacher，state=accepted 时必填
	ExpiresAt   *time.Time     `gorm:"index"`                                  // 可选过期时间，外部清扫任务使用
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Requester User `gorm:"foreignKey:RequesterID"`
}

func (BroadcastRequest) TableName() string {
	return prefix + "broadcast_request"
}

func (b *BroadcastRequest) BeforeCreate(tx *gorm.DB) error {
	if b.RequestUUID == "" {
		b.RequestUUID = uuid.NewString()
	}
	return nil
}

// 台账行状态
const (
	ResponderStatePending  = "pending"  // 已分发，等待决定
	ResponderStateAccepted = "accepted" // 抢单成功（整个请求范围内最多一行）
	ResponderStateDeclined = "declined" // 主动拒绝，或其他人接单后被动拒绝
)

// BroadcastResponder 分发台账：每个 (请求, teacher) 一行，记录各自的决定。
// (broadcast_request_id, responder_id) 唯一；行一旦离开 pending 不再变化。
type BroadcastResponder struct {
	ID                 uint64     `gorm:"primarykey"`
	BroadcastRequestID uint64     `gorm:"index:idx_request_responder,unique;not null"`
	ResponderID        uint64     `gorm:"index:idx_request_responder,unique;not null"`
	State              string     `gorm:"size:16;index;default:pending;not null"` // pending / accepted / declined
	DecidedAt          *time.Time // 离开 pending 的时间
	CreatedAt          time.Time
	UpdatedAt          time.Time

	Request   BroadcastRequest `gorm:"foreignKey:BroadcastRequestID"`
	Responder User             `gorm:"foreignKey:ResponderID"`
}

func (BroadcastResponder) TableName() string {
	return prefix + "broadcast_responder"
}

// Conversation 会话表：一次接单成功物化出的 1:1 会话，每个请求最多一条。
type Conversation struct {
	ID                 uint64     `gorm:"primarykey"`
	BroadcastRequestID uint64     `gorm:"uniqueIndex;not null"` // 来源请求
	LastMessageID      *uint64    `gorm:"index"`                // 最后一条消息 ID
	LastMessageText    string     `gorm:"size:500"`             // 最后一条消息内容（列表页免 join）
	LastMessageTime    *time.Time // 最后一条消息时间
	CreatedAt          time.Time
	UpdatedAt          time.Time

	Members []ConversationMember `gorm:"foreignKey:ConversationID"`
}

func (Conversation) TableName() string {
	return prefix + "conversation"
}

// ConversationMember 会话成员表（每个用户一行，维护各自的未读数）
type ConversationMember struct {
	ID             uint64 `gorm:"primarykey"`
	ConversationID uint64 `gorm:"index:idx_conv_user,unique;not null"`
	UserID         uint64 `gorm:"index:idx_conv_user,unique;not null"`
	UnreadCount    uint64 `gorm:"default:0"` // 未读消息数
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Conversation Conversation `gorm:"foreignKey:ConversationID"`
	User         User         `gorm:"foreignKey:UserID"`
}

func (ConversationMember) TableName() string {
	return prefix + "conversation_member"
}

// Message 消息表。首条消息由接单事务写入，内容等于请求的 Content，作者是 student。
type Message struct {
	ID             uint64         `gorm:"primarykey"`
	MessageUUID    string         `gorm:"size:36;uniqueIndex;not null"` // 对外消息 ID
	ConversationID uint64         `gorm:"index;not null"`
	SenderID       uint64         `gorm:"index;not null"`
	Content        string         `gorm:"type:text;not null"`
	Attachments    datatypes.JSON `gorm:"type:json"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      gorm.DeletedAt `gorm:"index"`

	Conversation Conversation `gorm:"foreignKey:ConversationID"`
	Sender       User         `gorm:"foreignKey:SenderID"`
}

func (Message) TableName() string {
	return prefix + "message"
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.MessageUUID == "" {
		m.MessageUUID = uuid.NewString()
	}
	return nil
}
