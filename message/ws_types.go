package message

// WS 上行消息（client -> server）。type 字段路由到分发表，见 cons 包的 WsType* 常量。

// ChatReq 会话内发消息
type ChatReq struct {
	Type           string   `json:"type"`            // message
	ConversationID uint64   `json:"conversation_id"` // 目标会话
	Content        string   `json:"content"`         // 文本内容
	Attachments    []string `json:"attachments,omitempty"`
	PacketID       string   `json:"packet_id,omitempty"` // 可选：客户端匹配 ack
}

// BroadcastDecisionReq 接单/拒绝（broadcast.accept / broadcast.decline 共用）
type BroadcastDecisionReq struct {
	Type      string `json:"type"`
	RequestID uint64 `json:"request_id"` // 广播请求 ID
	PacketID  string `json:"packet_id,omitempty"`
}

// ReadAckReq 已读回执：当前用户读完了某会话
type ReadAckReq struct {
	Type           string `json:"type"` // read_ack
	ConversationID uint64 `json:"conversation_id"`
	PacketID       string `json:"packet_id,omitempty"`
}

// ErrResp 上行处理失败时的回执（type=error）
type ErrResp struct {
	Type     string `json:"type"`
	Msg      string `json:"msg"`
	PacketID string `json:"packet_id,omitempty"`
}
