package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cydxin/match-sdk/cons"
	"github.com/cydxin/match-sdk/models"
	"github.com/cydxin/match-sdk/repository"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MatchService 广播撮合核心：创建/接单/拒绝。
//
// 抢单约定（winner-take-one）：
// - 判定完全交给数据库的条件 UPDATE（state='pending' 时才转移，看 RowsAffected），
//   应用层禁止"先读状态再写状态"。
// - 事务顺序固定为：先过两道原子闸（请求、自己的台账行），再做其余写入
//   （批量被动拒绝、物化会话、首条消息、通知）。闸没过直接回滚，不留半截状态。
//   请求闸在前：输家失败时手上不持任何台账行锁，拿到的是干净的状态冲突，
//   不会和赢家的批量被动拒绝互相等锁。
// - 拒绝关闭的判定（"最后一个拒绝者关单"）在请求行锁（FOR UPDATE）下进行，
//   同一请求的并发拒绝被串行化，计数不会读到对方未提交的快照。
// - WS 推送全部放在 commit 之后，失败只记日志：落库的 Notification 才是可靠送达。
type MatchService struct {
	*Service

	broadcastDao *repository.BroadcastDAO
	userDao      *repository.UserDAO

	// conv 会话物化（只在接单事务内部调用）
	conv *ConversationService
}

func NewMatchService(s *Service, conv *ConversationService) *MatchService {
	log.Println("NewMatchService")
	return &MatchService{
		Service:      s,
		broadcastDao: repository.NewBroadcastDAO(s.DB),
		userDao:      repository.NewUserDAO(s.DB),
		conv:         conv,
	}
}

// BroadcastDTO 对外返回的广播请求
type BroadcastDTO struct {
	ID          uint64     `json:"id"`
	RequestUUID string     `json:"request_uuid"`
	RequesterID uint64     `json:"requester_id"`
	Content     string     `json:"content"`
	Attachments []string   `json:"attachments,omitempty"`
	State       string     `json:"state"`
	AcceptedBy  *uint64    `json:"accepted_by,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toBroadcastDTO(req *models.BroadcastRequest) *BroadcastDTO {
	if req == nil {
		return nil
	}
	dto := &BroadcastDTO{
		ID:          req.ID,
		RequestUUID: req.RequestUUID,
		RequesterID: req.RequesterID,
		Content:     req.Content,
		State:       req.State,
		AcceptedBy:  req.AcceptedBy,
		ExpiresAt:   req.ExpiresAt,
		CreatedAt:   req.CreatedAt,
	}
	if len(req.Attachments) > 0 {
		_ = json.Unmarshal(req.Attachments, &dto.Attachments)
	}
	return dto
}

// AcceptResult 接单成功的返回：物化出的会话 + 首条消息
type AcceptResult struct {
	Conversation *ConversationDTO `json:"conversation"`
	Message      *MessageDTO      `json:"message"`
}

func marshalAttachments(attachments []string) (datatypes.JSON, error) {
	if len(attachments) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(attachments)
	if err != nil {
		return nil, validationErr("invalid attachments: %v", err)
	}
	return b, nil
}

// CreateBroadcast 创建广播请求并分发给全部可接单的 teacher。
// 请求 + N 条台账行 + N 条通知在一个事务里落库；WS 推送在提交后按角色广播。
func (s *MatchService) CreateBroadcast(requesterID uint64, content string, attachments []string) (*BroadcastDTO, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, validationErr("content is required")
	}
	if requesterID == 0 {
		return nil, validationErr("requester_id is required")
	}
	pl, err := marshalAttachments(attachments)
	if err != nil {
		return nil, err
	}

	requester, err := s.userDao.FindByID(requesterID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, authErr("requester %d not found", requesterID)
		}
		return nil, dependencyErr(err)
	}
	if requester.Role != models.RoleStudent || requester.Status != models.UserStatusActive {
		return nil, authErr("requester %d is not an active student", requesterID)
	}

	// 分发目标：全部正常状态的 teacher
	responderIDs, err := s.userDao.ListActiveIDsByRole(models.RoleTeacher)
	if err != nil {
		return nil, dependencyErr(err)
	}
	if len(responderIDs) == 0 {
		return nil, ErrNoEligibleResponders
	}

	now := time.Now()
	req := &models.BroadcastRequest{
		RequesterID: requesterID,
		Content:     content,
		Attachments: pl,
		State:       models.BroadcastStatePending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if s.BroadcastTTL > 0 {
		exp := now.Add(s.BroadcastTTL)
		req.ExpiresAt = &exp
	}

	tx := s.DB.Begin()
	if tx.Error != nil {
		return nil, dependencyErr(tx.Error)
	}
	defer tx.Rollback()

	dao := s.broadcastDao.WithDB(tx)
	if err := dao.CreateRequest(req); err != nil {
		return nil, dependencyErr(err)
	}

	rows := make([]models.BroadcastResponder, 0, len(responderIDs))
	notifs := make([]models.Notification, 0, len(responderIDs))
	for _, rid := range responderIDs {
		rows = append(rows, models.BroadcastResponder{
			BroadcastRequestID: req.ID,
			ResponderID:        rid,
			State:              models.ResponderStatePending,
			CreatedAt:          now,
			UpdatedAt:          now,
		})
		notifs = append(notifs, models.Notification{
			UserID:      rid,
			Type:        cons.NotifyBroadcastNew,
			Content:     truncateContent(content, 200),
			ReferenceID: req.ID,
			CreatedAt:   now,
		})
	}
	if err := dao.CreateResponderRows(rows); err != nil {
		return nil, dependencyErr(err)
	}
	if err := s.Notify.CreateManyInTx(tx, notifs); err != nil {
		return nil, dependencyErr(err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, dependencyErr(err)
	}

	dto := toBroadcastDTO(req)

	// 提交后才推送（尽力而为）
	s.emitBroadcastNew(dto)

	return dto, nil
}

// AcceptBroadcast 接单。并发调用时只有一个成功，其余收到 ErrStateConflict。
func (s *MatchService) AcceptBroadcast(responderID, requestID uint64) (*AcceptResult, error) {
	if responderID == 0 || requestID == 0 {
		return nil, validationErr("responder_id and request_id are required")
	}

	now := time.Now()
	tx := s.DB.Begin()
	if tx.Error != nil {
		return nil, dependencyErr(tx.Error)
	}
	defer tx.Rollback()

	dao := s.broadcastDao.WithDB(tx)

	// 第一道闸：请求 pending -> accepted（记录接单人）。
	// 没过说明请求已被接走/关闭/过期，此时不持任何行锁，直接归类返回。
	won, err := dao.ClaimRequest(requestID, responderID, now)
	if err != nil {
		return nil, dependencyErr(err)
	}
	if !won {
		return nil, s.classifyRequestClaimFailure(requestID)
	}

	// 第二道闸：自己的台账行 pending -> accepted。
	// 请求闸过了但行闸没过，说明没被分发到或已拒绝，整体回滚。
	won, err = dao.ClaimResponderRow(requestID, responderID, now)
	if err != nil {
		return nil, dependencyErr(err)
	}
	if !won {
		return nil, s.classifyDecisionFailure(requestID, responderID)
	}

	// 闸后写入：其余 pending 行全部被动拒绝
	if _, err := dao.ForceDeclinePending(requestID, responderID, now); err != nil {
		return nil, dependencyErr(err)
	}

	req, err := dao.GetRequestByID(requestID)
	if err != nil {
		return nil, dependencyErr(err)
	}

	// 物化会话 + 首条消息（同事务）
	conv, msg, err := s.conv.MaterializeConversation(tx, req, responderID, now)
	if err != nil {
		return nil, err
	}

	// 发起人通知（同事务落库）
	notif := &models.Notification{
		UserID:      req.RequesterID,
		Type:        cons.NotifyBroadcastAccepted,
		Content:     "你的求助已被接单",
		ReferenceID: conv.ID,
		CreatedAt:   now,
	}
	if err := s.Notify.CreateInTx(tx, notif); err != nil {
		return nil, dependencyErr(err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, dependencyErr(err)
	}

	result := &AcceptResult{
		Conversation: toConversationDTO(conv, responderID),
		Message:      ToMessageDTO(msg),
	}

	// 提交后推送：发起人收会话，台账内全部 teacher 收"已解决"
	s.emitBroadcastAccepted(req, result)
	s.Notify.PushNotification(notif)

	return result, nil
}

// DeclineBroadcast 拒绝。返回值表示本次拒绝是否触发了请求关闭（最后一个拒绝者）。
func (s *MatchService) DeclineBroadcast(responderID, requestID uint64) (bool, error) {
	if responderID == 0 || requestID == 0 {
		return false, validationErr("responder_id and request_id are required")
	}

	now := time.Now()
	tx := s.DB.Begin()
	if tx.Error != nil {
		return false, dependencyErr(tx.Error)
	}
	defer tx.Rollback()

	dao := s.broadcastDao.WithDB(tx)

	// 先锁请求行：同一请求的并发拒绝在这里排队。
	// 不锁的话，最后两个拒绝者各自更新自己的行互不冲突，
	// 各自的计数又都读到对方未提交前的快照（都看到还剩 1），谁也不关单。
	req, err := dao.GetRequestForUpdate(requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, notFoundErr("broadcast %d", requestID)
		}
		return false, dependencyErr(err)
	}

	ok, err := dao.DeclineResponderRow(requestID, responderID, now)
	if err != nil {
		return false, dependencyErr(err)
	}
	if !ok {
		return false, s.classifyDecisionFailure(requestID, responderID)
	}

	remaining, err := dao.CountPending(requestID)
	if err != nil {
		return false, dependencyErr(err)
	}

	allDeclined := false
	var notif *models.Notification
	if remaining == 0 {
		// 没人接单：请求 pending -> closed（条件更新，已被接走/过期时不动）
		closed, err := dao.CloseRequestIfPending(requestID, models.BroadcastStateClosed, now)
		if err != nil {
			return false, dependencyErr(err)
		}
		if closed {
			allDeclined = true
			notif = &models.Notification{
				UserID:      req.RequesterID,
				Type:        cons.NotifyBroadcastAllDeclined,
				Content:     "暂时没有老师能接你的求助",
				ReferenceID: req.ID,
				CreatedAt:   now,
			}
			if err := s.Notify.CreateInTx(tx, notif); err != nil {
				return false, dependencyErr(err)
			}
		}
	}

	if err := tx.Commit().Error; err != nil {
		return false, dependencyErr(err)
	}

	if allDeclined {
		s.emitAllDeclined(req)
		s.Notify.PushNotification(notif)
	}

	return allDeclined, nil
}

// ListPendingForResponder 某 teacher 当前可接的请求列表
func (s *MatchService) ListPendingForResponder(responderID uint64, limit int) ([]BroadcastDTO, error) {
	if responderID == 0 {
		return nil, validationErr("responder_id is required")
	}
	reqs, err := s.broadcastDao.ListPendingForResponder(responderID, limit)
	if err != nil {
		return nil, dependencyErr(err)
	}
	out := make([]BroadcastDTO, 0, len(reqs))
	for i := range reqs {
		out = append(out, *toBroadcastDTO(&reqs[i]))
	}
	return out, nil
}

// GetBroadcast 查单个请求（发起人或台账内 teacher 可见）
func (s *MatchService) GetBroadcast(callerID, requestID uint64) (*BroadcastDTO, error) {
	req, err := s.broadcastDao.GetRequestByID(requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundErr("broadcast %d", requestID)
		}
		return nil, dependencyErr(err)
	}
	if req.RequesterID != callerID {
		has, err := s.broadcastDao.HasResponderRow(requestID, callerID)
		if err != nil {
			return nil, dependencyErr(err)
		}
		if !has {
			return nil, authErr("user %d has no access to broadcast %d", callerID, requestID)
		}
	}
	return toBroadcastDTO(req), nil
}

// CloseExpiredBroadcasts 把已过期但仍 pending 的请求转为 expired 并通知发起人。
// 提供给宿主的周期清扫任务调用；接单/拒绝本身总是校验当前状态，
// 清扫慢了只影响列表整洁，不影响正确性。
func (s *MatchService) CloseExpiredBroadcasts(now time.Time) (int, error) {
	reqs, err := s.broadcastDao.ListExpiredPending(now, 100)
	if err != nil {
		return 0, dependencyErr(err)
	}

	closed := 0
	for i := range reqs {
		req := &reqs[i]
		err := func() error {
			tx := s.DB.Begin()
			if tx.Error != nil {
				return tx.Error
			}
			defer tx.Rollback()

			dao := s.broadcastDao.WithDB(tx)
			ok, err := dao.CloseRequestIfPending(req.ID, models.BroadcastStateExpired, now)
			if err != nil {
				return err
			}
			if !ok {
				// 清扫窗口内被接走或关闭了，跳过
				return nil
			}
			if _, err := dao.ForceDeclinePending(req.ID, 0, now); err != nil {
				return err
			}
			notif := &models.Notification{
				UserID:      req.RequesterID,
				Type:        cons.NotifyBroadcastExpired,
				Content:     "你的求助超时未被接单，已自动关闭",
				ReferenceID: req.ID,
				CreatedAt:   now,
			}
			if err := s.Notify.CreateInTx(tx, notif); err != nil {
				return err
			}
			if err := tx.Commit().Error; err != nil {
				return err
			}
			closed++
			s.emitExpired(req)
			return nil
		}()
		if err != nil {
			return closed, dependencyErr(err)
		}
	}
	return closed, nil
}

// classifyRequestClaimFailure 请求闸没过时的错误归类：
// - 请求不存在 -> ErrNotFound
// - 请求存在但已离开 pending -> ErrStateConflict（被接走/关闭/过期，正常业务结果）
func (s *MatchService) classifyRequestClaimFailure(requestID uint64) error {
	req, err := s.broadcastDao.GetRequestByID(requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundErr("broadcast %d", requestID)
		}
		return dependencyErr(err)
	}
	return conflictErr("broadcast %d is no longer pending (state=%s)", requestID, req.State)
}

// classifyDecisionFailure 条件更新没生效时的错误归类：
// - 请求不存在 -> ErrNotFound
// - 请求存在但没有自己的台账行 -> ErrAuthorization（不在分发范围内）
// - 行存在但已离开 pending -> ErrStateConflict（输掉竞争/已处理，正常业务结果）
//
// 用主库连接读（不在失败的条件更新之后复用事务语境），只做归类不做判定。
func (s *MatchService) classifyDecisionFailure(requestID, responderID uint64) error {
	row, err := s.broadcastDao.GetResponderRow(requestID, responderID)
	if err == nil {
		return conflictErr("responder %d already decided on broadcast %d (state=%s)",
			responderID, requestID, row.State)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dependencyErr(err)
	}
	if _, err := s.broadcastDao.GetRequestByID(requestID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundErr("broadcast %d", requestID)
		}
		return dependencyErr(err)
	}
	return authErr("responder %d is not part of broadcast %d", responderID, requestID)
}

// -------------------- 提交后的 WS 推送 --------------------

func (s *MatchService) emitBroadcastNew(dto *BroadcastDTO) {
	msg := struct {
		Type      string        `json:"type"`
		Broadcast *BroadcastDTO `json:"broadcast"`
	}{Type: cons.EventBroadcastNew, Broadcast: dto}

	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	s.pushToRole(models.RoleTeacher, b)
}

func (s *MatchService) emitBroadcastAccepted(req *models.BroadcastRequest, result *AcceptResult) {
	// 发起人：携带会话和首条消息
	acceptedMsg := struct {
		Type         string           `json:"type"`
		RequestID    uint64           `json:"request_id"`
		Conversation *ConversationDTO `json:"conversation"`
		Message      *MessageDTO      `json:"message"`
	}{
		Type:         cons.EventBroadcastAccepted,
		RequestID:    req.ID,
		Conversation: result.Conversation,
		Message:      result.Message,
	}
	if b, err := json.Marshal(acceptedMsg); err == nil {
		s.pushToUser(req.RequesterID, b)
	}

	// 台账内全部 teacher：从待处理列表移除
	s.emitResolved(req.ID)
}

func (s *MatchService) emitResolved(requestID uint64) {
	ids, err := s.broadcastDao.ListResponderIDs(requestID)
	if err != nil {
		log.Printf("emitResolved: list responders failed: %v", err)
		return
	}
	msg := struct {
		Type      string `json:"type"`
		RequestID uint64 `json:"request_id"`
	}{Type: cons.EventBroadcastResolved, RequestID: requestID}
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	for _, uid := range ids {
		s.pushToUser(uid, b)
	}
}

func (s *MatchService) emitAllDeclined(req *models.BroadcastRequest) {
	msg := struct {
		Type      string `json:"type"`
		RequestID uint64 `json:"request_id"`
	}{Type: cons.EventBroadcastAllDeclined, RequestID: req.ID}
	if b, err := json.Marshal(msg); err == nil {
		s.pushToUser(req.RequesterID, b)
	}
}

func (s *MatchService) emitExpired(req *models.BroadcastRequest) {
	msg := struct {
		Type      string `json:"type"`
		RequestID uint64 `json:"request_id"`
	}{Type: cons.EventBroadcastExpired, RequestID: req.ID}
	if b, err := json.Marshal(msg); err == nil {
		s.pushToUser(req.RequesterID, b)
	}
	s.emitResolved(req.ID)
}

func truncateContent(s string, max int) string {
	if len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return fmt.Sprintf("%s...", string(r[:max]))
}
