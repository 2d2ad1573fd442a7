package cons

// 下行 WS 事件类型（server -> client）
const (
	EventBroadcastNew         = "broadcast.new"          // 新求助请求（推给全部在线 teacher）
	EventBroadcastAccepted    = "broadcast.accepted"     // 请求被接单（推给发起的 student，携带会话+首条消息）
	EventBroadcastResolved    = "broadcast.resolved"     // 请求已被抢走/关闭，从待处理列表移除（推给 teacher）
	EventBroadcastAllDeclined = "broadcast.all_declined" // 全部拒绝，请求关闭（推给发起的 student）
	EventBroadcastExpired     = "broadcast.expired"      // 请求超时关闭
	EventMessageNew           = "message.new"            // 会话内新消息
	EventNotification         = "notification"           // 通用通知落库后的推送
	EventError                = "error"                  // 上行处理失败回执
)

// 上行 WS 消息类型（client -> server），见 message 包的请求结构
const (
	WsTypeChat             = "message"           // 会话内发消息
	WsTypeBroadcastAccept  = "broadcast.accept"  // teacher 接单
	WsTypeBroadcastDecline = "broadcast.decline" // teacher 拒绝
	WsTypeReadAck          = "read_ack"          // 会话已读回执
)

// 通知类型（mt_notification.type）
const (
	NotifyBroadcastNew         = "broadcast_new"          // 有新请求可接（teacher）
	NotifyBroadcastAccepted    = "broadcast_accepted"     // 你的请求已被接单（student）
	NotifyBroadcastAllDeclined = "broadcast_all_declined" // 没有 teacher 接单（student）
	NotifyBroadcastExpired     = "broadcast_expired"      // 请求超时未被接单（student）
)
