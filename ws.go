package match_sdk

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time 写入超时时间
	writeWait = 10 * time.Second

	// Time pong超时时间
	pongWait = 60 * time.Second

	// Send 对应的ping 必须小于pong
	pingPeriod = (pongWait * 9) / 10

	// Maximum 对等端允许消息大小
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for SDK
	},
}

// Client 代表"某个具体 websocket 连接"。
// 同一用户多设备时存在多个 Client，身份字段在建连鉴权后写入、之后只读。
type Client struct {
	hub *WsServer

	// 🔗链接
	conn *websocket.Conn

	// 消息缓冲区
	send chan []byte

	// UserID 鉴权出来的用户
	UserID uint64

	// Role 鉴权出来的角色（student/teacher），驱动角色索引
	Role string

	Nickname string

	Avatar string
}

// WsHandler 上行消息处理函数。raw 是整条 JSON 报文。
type WsHandler func(client *Client, raw json.RawMessage)

// WsServer 连接注册表 + 分发。
// 注册表是进程内共享可变状态：userID 索引支持多设备单播，role 索引支持按角色广播；
// 每次增删都在锁内完成，并发 connect/disconnect 后成员关系保持一致。
//
// 不再是包级全局：由 engine 创建一次、按引用传给需要推送的 service。
type WsServer struct {
	clients map[*Client]bool
	// 用户ID -> 该用户所有活跃的连接（支持多设备）
	userClients map[uint64][]*Client
	// 角色 -> 该角色所有活跃的连接（派生索引，随注册/注销同步维护）
	roleClients map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex

	// handlers 上行消息的显式分发表：type -> handler。
	// 建 engine 时绑定一次，之后只读。
	handlers map[string]WsHandler
}

func NewWsServer() *WsServer {
	return &WsServer{
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		clients:     make(map[*Client]bool),
		userClients: make(map[uint64][]*Client),
		roleClients: make(map[string]map[*Client]bool),
		handlers:    make(map[string]WsHandler),
	}
}

// Handle 注册上行消息处理器（engine 初始化时调用，运行期不再改表）
func (h *WsServer) Handle(msgType string, fn WsHandler) {
	if msgType == "" || fn == nil {
		return
	}
	h.handlers[msgType] = fn
}

func (h *WsServer) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client, true)
		}
	}
}

func (h *WsServer) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	h.userClients[client.UserID] = append(h.userClients[client.UserID], client)
	if client.Role != "" {
		set := h.roleClients[client.Role]
		if set == nil {
			set = make(map[*Client]bool)
			h.roleClients[client.Role] = set
		}
		set[client] = true
	}
}

// removeClient 从全部索引里摘除连接。closeSend=false 用于 send 队列已满被踢的场景，
// 此时由调用方统一 close。
func (h *WsServer) removeClient(client *Client, closeSend bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeClientLocked(client, closeSend)
}

func (h *WsServer) removeClientLocked(client *Client, closeSend bool) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)

	if userConns, exists := h.userClients[client.UserID]; exists {
		for i, conn := range userConns {
			if conn == client {
				h.userClients[client.UserID] = append(userConns[:i], userConns[i+1:]...)
				break
			}
		}
		if len(h.userClients[client.UserID]) == 0 {
			delete(h.userClients, client.UserID)
		}
	}

	if set, exists := h.roleClients[client.Role]; exists {
		delete(set, client)
		if len(set) == 0 {
			delete(h.roleClients, client.Role)
		}
	}

	if closeSend {
		close(client.send)
	}
}

// handleMessage 按分发表路由上行消息；未知类型只记日志不断连
func (h *WsServer) handleMessage(client *Client, msg []byte) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &probe); err != nil {
		log.Printf("ws: invalid message from user %d: %v", client.UserID, err)
		return
	}
	fn, ok := h.handlers[probe.Type]
	if !ok {
		log.Printf("ws: no handler for type %q (user %d)", probe.Type, client.UserID)
		return
	}
	fn(client, msg)
}

// readPump 将消息从client (websocket 连接) 送进分发表。
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { _ = c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("readPump error: %v", err)
			}
			break
		}
		c.hub.handleMessage(c, message)
	}
}

// writePump 将消息从hub写到具体的client (websocket 连接)。
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)

			// 一次性写出管道里剩余的消息，减少 syscall
			n := len(c.send)
			for i := 0; i < n; i++ {
				_, _ = w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("writePump 写入ping失败")
				return
			}
		}
	}
}

// ServeWS 升级连接并注册。调用方必须先完成鉴权：
// userID/role 来自已校验的 token，没有合法身份的请求不应走到这里。
func (h *WsServer) ServeWS(w http.ResponseWriter, r *http.Request, userID uint64, role, nickname, avatar string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}

	client := &Client{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, 256),
		UserID:   userID,
		Role:     role,
		Nickname: nickname,
		Avatar:   avatar,
	}
	client.hub.register <- client

	go client.writePump()
	go client.readPump()

	// 不要 select{} 永久阻塞 handler；连接生命周期由 readPump/writePump 控制。
}

// SendToUser 单播：推给该用户的全部在线连接；没有连接时静默跳过。
// 送达保证由 Notification 落库负责，这里只是加速。
func (h *WsServer) SendToUser(userID uint64, msg []byte) {
	h.mu.RLock()
	clients := make([]*Client, len(h.userClients[userID]))
	copy(clients, h.userClients[userID])
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.send <- msg:
		default:
			// 丢弃避免阻塞
		}
	}
}

// SendToRole 按角色广播：推给该角色的全部在线连接。
func (h *WsServer) SendToRole(role string, msg []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.roleClients[role]))
	for client := range h.roleClients[role] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.send <- msg:
		default:
		}
	}
}

// OnlineCount 在线连接数（监控/测试用）
func (h *WsServer) OnlineCount() (users int, conns int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userClients), len(h.clients)
}

// IsUserOnline 用户是否有至少一条在线连接
func (h *WsServer) IsUserOnline(userID uint64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userClients[userID]) > 0
}
