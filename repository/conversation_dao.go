package repository

import (
	"errors"
	"time"

	"github.com/cydxin/match-sdk/models"
	"gorm.io/gorm"
)

// ConversationDAO 封装会话/成员/消息的数据库操作
//
// 约定：
// - 只做"数据访问"（CRUD/查询封装），不做业务编排（权限、通知等）。
// - 事务边界应由 service 控制；如需在事务中执行，请使用 WithDB(tx)。
type ConversationDAO struct {
	db *gorm.DB
}

func NewConversationDAO(db *gorm.DB) *ConversationDAO {
	return &ConversationDAO{db: db}
}

// WithDB 用于在事务（tx）中复用 DAO
func (dao *ConversationDAO) WithDB(db *gorm.DB) *ConversationDAO {
	if db == nil {
		return dao
	}
	return &ConversationDAO{db: db}
}

// CreateConversation 创建会话
func (dao *ConversationDAO) CreateConversation(conv *models.Conversation) error {
	return dao.db.Create(conv).Error
}

// CreateMembers 批量写入会话成员
func (dao *ConversationDAO) CreateMembers(rows []models.ConversationMember) error {
	if len(rows) == 0 {
		return nil
	}
	return dao.db.Create(&rows).Error
}

// CreateMessage 写入消息
func (dao *ConversationDAO) CreateMessage(msg *models.Message) error {
	return dao.db.Create(msg).Error
}

// SetLastMessage 更新会话的最后消息冗余字段
func (dao *ConversationDAO) SetLastMessage(convID, msgID uint64, text string, at time.Time) error {
	if len(text) > 500 {
		text = text[:500]
	}
	return dao.db.Model(&models.Conversation{}).
		Where("id = ?", convID).
		Updates(map[string]any{
			"last_message_id":   msgID,
			"last_message_text": text,
			"last_message_time": at,
			"updated_at":        at,
		}).Error
}

// IncrementUnread 给会话内除 sender 外的成员未读数 +1
func (dao *ConversationDAO) IncrementUnread(convID, senderID uint64) error {
	return dao.db.Model(&models.ConversationMember{}).
		Where("conversation_id = ? AND user_id <> ?", convID, senderID).
		Update("unread_count", gorm.Expr("unread_count + ?", 1)).Error
}

// ResetUnread 清零某成员的未读数（已读回执）
func (dao *ConversationDAO) ResetUnread(convID, userID uint64) error {
	return dao.db.Model(&models.ConversationMember{}).
		Where("conversation_id = ? AND user_id = ?", convID, userID).
		Update("unread_count", 0).Error
}

// GetByID 查会话
func (dao *ConversationDAO) GetByID(id uint64) (*models.Conversation, error) {
	var conv models.Conversation
	if err := dao.db.Where("id = ?", id).First(&conv).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

// GetByRequestID 按来源请求查会话（每个请求最多一条）
func (dao *ConversationDAO) GetByRequestID(requestID uint64) (*models.Conversation, error) {
	var conv models.Conversation
	if err := dao.db.Where("broadcast_request_id = ?", requestID).First(&conv).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

// GetMember 查成员行
func (dao *ConversationDAO) GetMember(convID, userID uint64) (*models.ConversationMember, error) {
	var m models.ConversationMember
	err := dao.db.Where("conversation_id = ? AND user_id = ?", convID, userID).First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// IsMember 用户是否在会话中
func (dao *ConversationDAO) IsMember(convID, userID uint64) (bool, error) {
	_, err := dao.GetMember(convID, userID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return false, err
}

// ListMembers 会话全部成员
func (dao *ConversationDAO) ListMembers(convID uint64) ([]models.ConversationMember, error) {
	var rows []models.ConversationMember
	err := dao.db.Where("conversation_id = ?", convID).Find(&rows).Error
	return rows, err
}

// ListMembershipsByUser 某用户的全部成员行（按会话更新时间倒序由 service 排）
func (dao *ConversationDAO) ListMembershipsByUser(userID uint64) ([]models.ConversationMember, error) {
	var rows []models.ConversationMember
	err := dao.db.Where("user_id = ?", userID).Find(&rows).Error
	return rows, err
}

// ListConversationsByIDs 批量查会话
func (dao *ConversationDAO) ListConversationsByIDs(ids []uint64) ([]models.Conversation, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var convs []models.Conversation
	err := dao.db.Where("id IN ?", ids).Order("updated_at DESC").Find(&convs).Error
	return convs, err
}

// ListMessages 消息历史，id 游标倒序分页（cursor=0 从最新开始）
func (dao *ConversationDAO) ListMessages(convID, cursor uint64, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	q := dao.db.Model(&models.Message{}).Where("conversation_id = ?", convID)
	if cursor > 0 {
		q = q.Where("id < ?", cursor)
	}
	var msgs []models.Message
	err := q.Order("id DESC").Limit(limit).Find(&msgs).Error
	return msgs, err
}
