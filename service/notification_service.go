package service

import (
	"encoding/json"
	"time"

	"github.com/cydxin/match-sdk/cons"
	"github.com/cydxin/match-sdk/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NotificationService 统一处理用户通知
// 约定：与触发通知的状态变更同事务落库，再尽力通过 WS 推送；
// 离线/新设备通过 HTTP 拉取。WS 只是加速，落库才是送达保证。
type NotificationService struct {
	*Service
}

func NewNotificationService(s *Service) *NotificationService {
	return &NotificationService{Service: s}
}

// CreateInTx 在调用方事务里写一条通知
func (s *NotificationService) CreateInTx(tx *gorm.DB, n *models.Notification) error {
	if n == nil {
		return nil
	}
	if n.UserID == 0 {
		return validationErr("notification user_id is required")
	}
	if n.Type == "" {
		return validationErr("notification type is required")
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	return tx.Create(n).Error
}

// CreateManyInTx 批量写入（广播分发时每个 teacher 一条）。
// OnConflict DoNothing: 避免并发/重试重复投递。
func (s *NotificationService) CreateManyInTx(tx *gorm.DB, rows []models.Notification) error {
	if len(rows) == 0 {
		return nil
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

// PushNotification WS 推送（尽力而为：失败不影响主流程）。
// 只允许在事务提交之后调用。
func (s *NotificationService) PushNotification(n *models.Notification) {
	if n == nil {
		return
	}
	msg := struct {
		Type        string         `json:"type"`
		ID          uint64         `json:"id"`
		NotifyType  string         `json:"notify_type"`
		Content     string         `json:"content"`
		Payload     datatypes.JSON `json:"payload,omitempty"`
		ReferenceID uint64         `json:"reference_id,omitempty"`
		CreatedAt   time.Time      `json:"created_at"`
	}{
		Type:        cons.EventNotification,
		ID:          n.ID,
		NotifyType:  n.Type,
		Content:     n.Content,
		Payload:     n.Payload,
		ReferenceID: n.ReferenceID,
		CreatedAt:   n.CreatedAt,
	}

	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	s.pushToUser(n.UserID, b)
}

// NotificationDTO HTTP 返回结构
type NotificationDTO struct {
	ID          uint64         `json:"id"`
	Type        string         `json:"type"`
	Content     string         `json:"content"`
	Payload     datatypes.JSON `json:"payload,omitempty"`
	ReferenceID uint64         `json:"reference_id,omitempty"`
	IsRead      bool           `json:"is_read"`
	CreatedAt   time.Time      `json:"created_at"`
}

// ListUserNotifications 拉取用户通知（按 id 倒序，游标分页）
// - sinceDays: 近 N 天（建议默认 2）
// - cursor: 分页游标（传 0 表示从最新开始；否则取 id < cursor）
func (s *NotificationService) ListUserNotifications(userID uint64, sinceDays int, cursor uint64, limit int, unreadOnly bool) ([]NotificationDTO, uint64, error) {
	if userID == 0 {
		return nil, 0, validationErr("user_id is required")
	}
	if sinceDays <= 0 {
		sinceDays = 2
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	since := time.Now().Add(-time.Duration(sinceDays) * 24 * time.Hour)

	q := s.DB.Model(&models.Notification{}).
		Where("user_id = ? AND created_at >= ?", userID, since)
	if cursor > 0 {
		q = q.Where("id < ?", cursor)
	}
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}

	var rows []models.Notification
	if err := q.Order("id desc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, 0, dependencyErr(err)
	}

	out := make([]NotificationDTO, 0, len(rows))
	var nextCursor uint64
	for _, r := range rows {
		out = append(out, NotificationDTO{
			ID:          r.ID,
			Type:        r.Type,
			Content:     r.Content,
			Payload:     r.Payload,
			ReferenceID: r.ReferenceID,
			IsRead:      r.IsRead,
			CreatedAt:   r.CreatedAt,
		})
		nextCursor = r.ID
	}

	return out, nextCursor, nil
}

// MarkReadByIDs 批量标记已读
func (s *NotificationService) MarkReadByIDs(userID uint64, ids []uint64) error {
	if userID == 0 {
		return validationErr("user_id is required")
	}
	if len(ids) == 0 {
		return nil
	}
	now := time.Now()
	err := s.DB.Model(&models.Notification{}).
		Where("user_id = ? AND id IN ?", userID, ids).
		Updates(map[string]any{"is_read": true, "read_at": &now}).Error
	if err != nil {
		return dependencyErr(err)
	}
	return nil
}
