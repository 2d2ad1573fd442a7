package service

import (
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/cydxin/match-sdk/cons"
	"github.com/cydxin/match-sdk/models"
	"github.com/cydxin/match-sdk/repository"
	"gorm.io/gorm"
)

// ConversationService 会话：接单成功后的物化 + 列表/消息收发/已读
type ConversationService struct {
	*Service

	convDao *repository.ConversationDAO
	userDao *repository.UserDAO
}

func NewConversationService(s *Service) *ConversationService {
	log.Println("NewConversationService")
	return &ConversationService{
		Service: s,
		convDao: repository.NewConversationDAO(s.DB),
		userDao: repository.NewUserDAO(s.DB),
	}
}

// MessageDTO 消息
type MessageDTO struct {
	ID             uint64    `json:"id"`
	MessageUUID    string    `json:"message_uuid"`
	ConversationID uint64    `json:"conversation_id"`
	SenderID       uint64    `json:"sender_id"`
	Content        string    `json:"content"`
	Attachments    []string  `json:"attachments,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func ToMessageDTO(msg *models.Message) *MessageDTO {
	if msg == nil {
		return nil
	}
	dto := &MessageDTO{
		ID:             msg.ID,
		MessageUUID:    msg.MessageUUID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Content:        msg.Content,
		CreatedAt:      msg.CreatedAt,
	}
	if len(msg.Attachments) > 0 {
		_ = json.Unmarshal(msg.Attachments, &dto.Attachments)
	}
	return dto
}

// ConversationDTO 会话列表项（viewer 视角：对方信息 + 自己的未读数）
type ConversationDTO struct {
	ID                 uint64     `json:"id"`
	BroadcastRequestID uint64     `json:"broadcast_request_id"`
	PeerID             uint64     `json:"peer_id"`
	PeerNickname       string     `json:"peer_nickname,omitempty"`
	PeerAvatar         string     `json:"peer_avatar,omitempty"`
	LastMessageText    string     `json:"last_message_text,omitempty"`
	LastMessageTime    *time.Time `json:"last_message_time,omitempty"`
	UnreadCount        uint64     `json:"unread_count"`
	UpdatedAt          int64      `json:"updated_at"` // unix seconds for easy sort/render
}

func toConversationDTO(conv *models.Conversation, viewerID uint64) *ConversationDTO {
	if conv == nil {
		return nil
	}
	dto := &ConversationDTO{
		ID:                 conv.ID,
		BroadcastRequestID: conv.BroadcastRequestID,
		LastMessageText:    conv.LastMessageText,
		LastMessageTime:    conv.LastMessageTime,
		UpdatedAt:          conv.UpdatedAt.Unix(),
	}
	for _, m := range conv.Members {
		if m.UserID == viewerID {
			dto.UnreadCount = m.UnreadCount
		} else {
			dto.PeerID = m.UserID
		}
	}
	return dto
}

// MaterializeConversation 接单事务内的物化：会话 + 双方成员行 + 首条消息。
// 只允许由 MatchService 在两道原子闸都通过之后、同一个 tx 里调用，
// 绝不单独提交——会话要么随接单一起出现，要么不出现。
//
// 首条消息由 student 署名，内容等于请求原文；teacher 侧未读数 +1。
func (s *ConversationService) MaterializeConversation(tx *gorm.DB, req *models.BroadcastRequest, responderID uint64, now time.Time) (*models.Conversation, *models.Message, error) {
	dao := s.convDao.WithDB(tx)

	conv := &models.Conversation{
		BroadcastRequestID: req.ID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := dao.CreateConversation(conv); err != nil {
		return nil, nil, dependencyErr(err)
	}

	members := []models.ConversationMember{
		{
			ConversationID: conv.ID,
			UserID:         req.RequesterID,
			UnreadCount:    0, // 自己发起的首条消息
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		{
			ConversationID: conv.ID,
			UserID:         responderID,
			UnreadCount:    1, // 首条消息待读
			CreatedAt:      now,
			UpdatedAt:      now,
		},
	}
	if err := dao.CreateMembers(members); err != nil {
		return nil, nil, dependencyErr(err)
	}

	msg := &models.Message{
		ConversationID: conv.ID,
		SenderID:       req.RequesterID,
		Content:        req.Content,
		Attachments:    req.Attachments,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := dao.CreateMessage(msg); err != nil {
		return nil, nil, dependencyErr(err)
	}

	if err := dao.SetLastMessage(conv.ID, msg.ID, msg.Content, now); err != nil {
		return nil, nil, dependencyErr(err)
	}
	conv.LastMessageID = &msg.ID
	conv.LastMessageText = msg.Content
	conv.LastMessageTime = &now
	conv.Members = members

	return conv, msg, nil
}

// GetConversationList 获取当前用户的会话列表（按最近活跃倒序）
func (s *ConversationService) GetConversationList(userID uint64) ([]ConversationDTO, error) {
	if userID == 0 {
		return nil, validationErr("user_id is required")
	}

	memberships, err := s.convDao.ListMembershipsByUser(userID)
	if err != nil {
		return nil, dependencyErr(err)
	}
	if len(memberships) == 0 {
		return []ConversationDTO{}, nil
	}

	convIDs := make([]uint64, 0, len(memberships))
	unreadByConv := make(map[uint64]uint64, len(memberships))
	for _, m := range memberships {
		convIDs = append(convIDs, m.ConversationID)
		unreadByConv[m.ConversationID] = m.UnreadCount
	}

	convs, err := s.convDao.ListConversationsByIDs(convIDs)
	if err != nil {
		return nil, dependencyErr(err)
	}

	// 对方成员：Map[convID]peerID
	peerByConv := make(map[uint64]uint64, len(convs))
	peerIDs := make([]uint64, 0, len(convs))
	for _, cid := range convIDs {
		members, err := s.convDao.ListMembers(cid)
		if err != nil {
			return nil, dependencyErr(err)
		}
		for _, m := range members {
			if m.UserID != userID {
				peerByConv[cid] = m.UserID
				peerIDs = append(peerIDs, m.UserID)
			}
		}
	}

	users, err := s.userDao.ListByIDs(peerIDs)
	if err != nil {
		return nil, dependencyErr(err)
	}
	userMap := make(map[uint64]models.User, len(users))
	for _, u := range users {
		userMap[u.ID] = u
	}

	out := make([]ConversationDTO, 0, len(convs))
	for i := range convs {
		c := convs[i]
		item := ConversationDTO{
			ID:                 c.ID,
			BroadcastRequestID: c.BroadcastRequestID,
			PeerID:             peerByConv[c.ID],
			LastMessageText:    c.LastMessageText,
			LastMessageTime:    c.LastMessageTime,
			UnreadCount:        unreadByConv[c.ID],
			UpdatedAt:          c.UpdatedAt.Unix(),
		}
		if peer, ok := userMap[item.PeerID]; ok {
			item.PeerNickname = peer.Nickname
			item.PeerAvatar = peer.Avatar
		}
		out = append(out, item)
	}

	return out, nil
}

// SendMessage 会话内发消息：落库 + 冗余字段 + 对方未读 +1，同事务；
// 提交后把 message.new 推给除 sender 外的成员。
func (s *ConversationService) SendMessage(senderID, convID uint64, content string, attachments []string) (*MessageDTO, error) {
	content = strings.TrimSpace(content)
	if content == "" && len(attachments) == 0 {
		return nil, validationErr("content or attachments required")
	}

	isMember, err := s.convDao.IsMember(convID, senderID)
	if err != nil {
		return nil, dependencyErr(err)
	}
	if !isMember {
		return nil, authErr("user %d is not in conversation %d", senderID, convID)
	}

	pl, err := marshalAttachments(attachments)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	msg := &models.Message{
		ConversationID: convID,
		SenderID:       senderID,
		Content:        content,
		Attachments:    pl,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	tx := s.DB.Begin()
	if tx.Error != nil {
		return nil, dependencyErr(tx.Error)
	}
	defer tx.Rollback()

	dao := s.convDao.WithDB(tx)
	if err := dao.CreateMessage(msg); err != nil {
		return nil, dependencyErr(err)
	}
	if err := dao.SetLastMessage(convID, msg.ID, content, now); err != nil {
		return nil, dependencyErr(err)
	}
	if err := dao.IncrementUnread(convID, senderID); err != nil {
		return nil, dependencyErr(err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, dependencyErr(err)
	}

	dto := ToMessageDTO(msg)
	s.emitNewMessage(convID, senderID, dto)

	return dto, nil
}

// MarkConversationRead 已读回执：清零 viewer 的未读数
func (s *ConversationService) MarkConversationRead(userID, convID uint64) error {
	isMember, err := s.convDao.IsMember(convID, userID)
	if err != nil {
		return dependencyErr(err)
	}
	if !isMember {
		return authErr("user %d is not in conversation %d", userID, convID)
	}
	if err := s.convDao.ResetUnread(convID, userID); err != nil {
		return dependencyErr(err)
	}
	return nil
}

// ListMessages 消息历史（成员可见，id 游标倒序分页）
func (s *ConversationService) ListMessages(userID, convID, cursor uint64, limit int) ([]MessageDTO, uint64, error) {
	isMember, err := s.convDao.IsMember(convID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, notFoundErr("conversation %d", convID)
		}
		return nil, 0, dependencyErr(err)
	}
	if !isMember {
		return nil, 0, authErr("user %d is not in conversation %d", userID, convID)
	}

	msgs, err := s.convDao.ListMessages(convID, cursor, limit)
	if err != nil {
		return nil, 0, dependencyErr(err)
	}
	out := make([]MessageDTO, 0, len(msgs))
	var nextCursor uint64
	for i := range msgs {
		out = append(out, *ToMessageDTO(&msgs[i]))
		nextCursor = msgs[i].ID
	}
	return out, nextCursor, nil
}

func (s *ConversationService) emitNewMessage(convID, senderID uint64, dto *MessageDTO) {
	members, err := s.convDao.ListMembers(convID)
	if err != nil {
		log.Printf("emitNewMessage: list members failed: %v", err)
		return
	}
	msg := struct {
		Type    string      `json:"type"`
		Message *MessageDTO `json:"message"`
	}{Type: cons.EventMessageNew, Message: dto}
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	for _, m := range members {
		if m.UserID == senderID {
			continue
		}
		s.pushToUser(m.UserID, b)
	}
}
