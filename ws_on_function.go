package match_sdk

import (
	"encoding/json"
	"errors"
	"log"

	"github.com/cydxin/match-sdk/cons"
	"github.com/cydxin/match-sdk/message"
	"github.com/cydxin/match-sdk/service"
)

// bindWsHandlers 绑定上行消息的分发表。
// 放在 match_sdk 包根目录（与 WsServer/engine.go 同级），
// 这样可以直接访问 engine 与 Client 类型，避免 service 层循环依赖。
//
// 每个 handler 都只是"鉴权身份 + 请求参数 -> service 调用"的薄壳；
// 业务失败通过 type=error 回执给发起连接，不影响其他连接。
func (c *MatchEngine) bindWsHandlers() {
	c.WsServer.Handle(cons.WsTypeChat, c.wsHandleChat)
	c.WsServer.Handle(cons.WsTypeBroadcastAccept, c.wsHandleAccept)
	c.WsServer.Handle(cons.WsTypeBroadcastDecline, c.wsHandleDecline)
	c.WsServer.Handle(cons.WsTypeReadAck, c.wsHandleReadAck)
}

func (c *MatchEngine) wsHandleChat(client *Client, raw json.RawMessage) {
	var req message.ChatReq
	if err := json.Unmarshal(raw, &req); err != nil {
		c.sendWsError(client, "invalid message payload", "")
		return
	}
	if _, err := c.ConversationService.SendMessage(client.UserID, req.ConversationID, req.Content, req.Attachments); err != nil {
		c.sendWsError(client, wsErrText(err), req.PacketID)
	}
}

func (c *MatchEngine) wsHandleAccept(client *Client, raw json.RawMessage) {
	var req message.BroadcastDecisionReq
	if err := json.Unmarshal(raw, &req); err != nil {
		c.sendWsError(client, "invalid message payload", "")
		return
	}
	result, err := c.MatchService.AcceptBroadcast(client.UserID, req.RequestID)
	if err != nil {
		c.sendWsError(client, wsErrText(err), req.PacketID)
		return
	}

	// 接单成功：结果直接回给发起连接（student 侧推送由 service 提交后负责）
	resp := struct {
		Type      string                `json:"type"`
		RequestID uint64                `json:"request_id"`
		PacketID  string                `json:"packet_id,omitempty"`
		Result    *service.AcceptResult `json:"result"`
	}{Type: cons.EventBroadcastAccepted, RequestID: req.RequestID, PacketID: req.PacketID, Result: result}
	if b, err := json.Marshal(resp); err == nil {
		c.WsServer.SendToUser(client.UserID, b)
	}
}

func (c *MatchEngine) wsHandleDecline(client *Client, raw json.RawMessage) {
	var req message.BroadcastDecisionReq
	if err := json.Unmarshal(raw, &req); err != nil {
		c.sendWsError(client, "invalid message payload", "")
		return
	}
	if _, err := c.MatchService.DeclineBroadcast(client.UserID, req.RequestID); err != nil {
		c.sendWsError(client, wsErrText(err), req.PacketID)
	}
}

func (c *MatchEngine) wsHandleReadAck(client *Client, raw json.RawMessage) {
	var req message.ReadAckReq
	if err := json.Unmarshal(raw, &req); err != nil {
		return
	}
	if req.ConversationID == 0 {
		return
	}
	if err := c.ConversationService.MarkConversationRead(client.UserID, req.ConversationID); err != nil {
		log.Printf("ws read_ack: %v", err)
	}
}

// sendWsError 给单个用户回错误回执
func (c *MatchEngine) sendWsError(client *Client, msg, packetID string) {
	if client == nil {
		return
	}
	resp := message.ErrResp{Type: cons.EventError, Msg: msg, PacketID: packetID}
	if b, err := json.Marshal(resp); err == nil {
		c.WsServer.SendToUser(client.UserID, b)
	}
}

// wsErrText 业务错误转用户可读文案；输掉抢单是正常结果，文案要区分"请求不存在"
func wsErrText(err error) string {
	switch {
	case errors.Is(err, service.ErrStateConflict):
		return "请求已被其他人接走"
	case errors.Is(err, service.ErrNotFound):
		return "请求不存在"
	case errors.Is(err, service.ErrAuthorization):
		return "没有权限操作该请求"
	case errors.Is(err, service.ErrValidation):
		return "参数不合法"
	default:
		return "操作失败，请稍后重试"
	}
}
