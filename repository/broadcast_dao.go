package repository

import (
	"errors"
	"time"

	"github.com/cydxin/match-sdk/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BroadcastDAO 封装广播请求 + 分发台账的数据库操作
//
// 约定：
// - 只做"数据访问"（CRUD/条件更新封装），不做业务编排（权限、通知等）。
// - 事务边界应由 service 控制；如需在事务中执行，请使用 WithDB(tx)。
// - 抢单判定只能走 Claim*（条件 UPDATE 看 RowsAffected），
//   禁止先读后写：数据库的原子更新是唯一的裁决点。
type BroadcastDAO struct {
	db *gorm.DB
}

func NewBroadcastDAO(db *gorm.DB) *BroadcastDAO {
	return &BroadcastDAO{db: db}
}

// WithDB 用于在事务（tx）中复用 DAO
func (dao *BroadcastDAO) WithDB(db *gorm.DB) *BroadcastDAO {
	if db == nil {
		return dao
	}
	return &BroadcastDAO{db: db}
}

// CreateRequest 创建广播请求
func (dao *BroadcastDAO) CreateRequest(req *models.BroadcastRequest) error {
	return dao.db.Create(req).Error
}

// CreateResponderRows 批量写入台账行（每个 teacher 一行，state=pending）
func (dao *BroadcastDAO) CreateResponderRows(rows []models.BroadcastResponder) error {
	if len(rows) == 0 {
		return nil
	}
	return dao.db.Create(&rows).Error
}

// GetRequestByID 查请求，不存在时返回 gorm.ErrRecordNotFound
func (dao *BroadcastDAO) GetRequestByID(id uint64) (*models.BroadcastRequest, error) {
	var req models.BroadcastRequest
	if err := dao.db.Where("id = ?", id).First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// GetRequestForUpdate 锁定请求行再返回（SELECT ... FOR UPDATE），只能在事务里用。
// 同一请求下的并发拒绝靠这把行锁串行化，"数完 pending 再关闭"的判定才成立。
func (dao *BroadcastDAO) GetRequestForUpdate(id uint64) (*models.BroadcastRequest, error) {
	var req models.BroadcastRequest
	err := dao.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// GetResponderRow 查某个 teacher 在某请求下的台账行
func (dao *BroadcastDAO) GetResponderRow(requestID, responderID uint64) (*models.BroadcastResponder, error) {
	var row models.BroadcastResponder
	err := dao.db.
		Where("broadcast_request_id = ? AND responder_id = ?", requestID, responderID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// HasResponderRow 台账行是否存在（不论状态）
func (dao *BroadcastDAO) HasResponderRow(requestID, responderID uint64) (bool, error) {
	_, err := dao.GetResponderRow(requestID, responderID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return false, err
}

// ClaimResponderRow 抢单第二道闸：自己的台账行 pending -> accepted 的条件更新。
// 返回 false 表示行不存在或已不是 pending（未被分发/已拒绝）。
func (dao *BroadcastDAO) ClaimResponderRow(requestID, responderID uint64, now time.Time) (bool, error) {
	res := dao.db.Model(&models.BroadcastResponder{}).
		Where("broadcast_request_id = ? AND responder_id = ? AND state = ?",
			requestID, responderID, models.ResponderStatePending).
		Updates(map[string]any{
			"state":      models.ResponderStateAccepted,
			"decided_at": &now,
			"updated_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ClaimRequest 抢单第一道闸：请求 pending -> accepted，并记录接单人。
// 并发接单的输家在这里拿到 0 行；此时还没碰过任何台账行，不会和赢家的
// ForceDeclinePending 形成交叉持锁。
func (dao *BroadcastDAO) ClaimRequest(requestID, responderID uint64, now time.Time) (bool, error) {
	res := dao.db.Model(&models.BroadcastRequest{}).
		Where("id = ? AND state = ?", requestID, models.BroadcastStatePending).
		Updates(map[string]any{
			"state":       models.BroadcastStateAccepted,
			"accepted_by": responderID,
			"updated_at":  now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// DeclineResponderRow 拒绝：pending -> declined 的条件更新。
func (dao *BroadcastDAO) DeclineResponderRow(requestID, responderID uint64, now time.Time) (bool, error) {
	res := dao.db.Model(&models.BroadcastResponder{}).
		Where("broadcast_request_id = ? AND responder_id = ? AND state = ?",
			requestID, responderID, models.ResponderStatePending).
		Updates(map[string]any{
			"state":      models.ResponderStateDeclined,
			"decided_at": &now,
			"updated_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ForceDeclinePending 接单成功后，把同一请求下其余 pending 行批量转 declined。
func (dao *BroadcastDAO) ForceDeclinePending(requestID, winnerID uint64, now time.Time) (int64, error) {
	res := dao.db.Model(&models.BroadcastResponder{}).
		Where("broadcast_request_id = ? AND responder_id <> ? AND state = ?",
			requestID, winnerID, models.ResponderStatePending).
		Updates(map[string]any{
			"state":      models.ResponderStateDeclined,
			"decided_at": &now,
			"updated_at": now,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// CountPending 同一请求下仍为 pending 的台账行数
func (dao *BroadcastDAO) CountPending(requestID uint64) (int64, error) {
	var n int64
	err := dao.db.Model(&models.BroadcastResponder{}).
		Where("broadcast_request_id = ? AND state = ?", requestID, models.ResponderStatePending).
		Count(&n).Error
	return n, err
}

// CloseRequestIfPending 请求 pending -> closed/expired 的条件更新（全拒/超时共用）。
func (dao *BroadcastDAO) CloseRequestIfPending(requestID uint64, state string, now time.Time) (bool, error) {
	res := dao.db.Model(&models.BroadcastRequest{}).
		Where("id = ? AND state = ?", requestID, models.BroadcastStatePending).
		Updates(map[string]any{
			"state":      state,
			"updated_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListResponderIDs 某请求的全部台账 teacher ID（推送"请求已解决"用）
func (dao *BroadcastDAO) ListResponderIDs(requestID uint64) ([]uint64, error) {
	var ids []uint64
	err := dao.db.Model(&models.BroadcastResponder{}).
		Where("broadcast_request_id = ?", requestID).
		Pluck("responder_id", &ids).Error
	return ids, err
}

// ListPendingForResponder 某 teacher 目前可接的请求列表（双方都还 pending）
func (dao *BroadcastDAO) ListPendingForResponder(responderID uint64, limit int) ([]models.BroadcastRequest, error) {
	if limit <= 0 {
		limit = 50
	}
	var reqs []models.BroadcastRequest
	err := dao.db.Model(&models.BroadcastRequest{}).
		Joins("JOIN "+models.BroadcastResponder{}.TableName()+" r ON r.broadcast_request_id = "+
			models.BroadcastRequest{}.TableName()+".id").
		Where("r.responder_id = ? AND r.state = ?", responderID, models.ResponderStatePending).
		Where(models.BroadcastRequest{}.TableName()+".state = ?", models.BroadcastStatePending).
		Order(models.BroadcastRequest{}.TableName() + ".created_at DESC").
		Limit(limit).
		Find(&reqs).Error
	return reqs, err
}

// ListExpiredPending 已过期但仍 pending 的请求（外部清扫任务用）
func (dao *BroadcastDAO) ListExpiredPending(now time.Time, limit int) ([]models.BroadcastRequest, error) {
	if limit <= 0 {
		limit = 100
	}
	var reqs []models.BroadcastRequest
	err := dao.db.Model(&models.BroadcastRequest{}).
		Where("state = ? AND expires_at IS NOT NULL AND expires_at <= ?", models.BroadcastStatePending, now).
		Limit(limit).
		Find(&reqs).Error
	return reqs, err
}
