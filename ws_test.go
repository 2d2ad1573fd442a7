package match_sdk

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cydxin/match-sdk/models"
)

func newTestClient(h *WsServer, userID uint64, role string) *Client {
	return &Client{
		hub:    h,
		send:   make(chan []byte, 16),
		UserID: userID,
		Role:   role,
	}
}

func TestWsServer_RegisterUnregisterIndexes(t *testing.T) {
	h := NewWsServer()

	// 同一用户两个设备 + 另一个角色的用户
	c1 := newTestClient(h, 1, models.RoleTeacher)
	c2 := newTestClient(h, 1, models.RoleTeacher)
	c3 := newTestClient(h, 2, models.RoleStudent)

	h.addClient(c1)
	h.addClient(c2)
	h.addClient(c3)

	users, conns := h.OnlineCount()
	if users != 2 || conns != 3 {
		t.Fatalf("expected 2 users / 3 conns, got %d / %d", users, conns)
	}
	if !h.IsUserOnline(1) || !h.IsUserOnline(2) {
		t.Fatalf("expected users 1 and 2 online")
	}

	// 摘掉一个设备：用户仍在线
	h.removeClient(c1, true)
	if !h.IsUserOnline(1) {
		t.Fatalf("user 1 should still be online via second device")
	}

	// 摘掉最后一个设备：用户离线，索引被清空
	h.removeClient(c2, true)
	if h.IsUserOnline(1) {
		t.Fatalf("user 1 should be offline")
	}

	h.mu.RLock()
	if _, ok := h.userClients[1]; ok {
		t.Fatalf("userClients should not keep empty entry")
	}
	if set := h.roleClients[models.RoleTeacher]; len(set) != 0 {
		t.Fatalf("role index should be empty after last teacher left, got %d", len(set))
	}
	h.mu.RUnlock()

	// 重复摘除是幂等的
	h.removeClient(c2, true)
}

func TestWsServer_SendToUser_MultiDevice(t *testing.T) {
	h := NewWsServer()

	c1 := newTestClient(h, 1, models.RoleTeacher)
	c2 := newTestClient(h, 1, models.RoleTeacher)
	h.addClient(c1)
	h.addClient(c2)

	h.SendToUser(1, []byte(`{"type":"notification"}`))

	for i, c := range []*Client{c1, c2} {
		select {
		case <-c.send:
		default:
			t.Fatalf("device %d did not receive the message", i)
		}
	}

	// 不在线的用户：静默跳过，不 panic
	h.SendToUser(404, []byte("x"))
}

func TestWsServer_SendToRole(t *testing.T) {
	h := NewWsServer()

	teacher1 := newTestClient(h, 1, models.RoleTeacher)
	teacher2 := newTestClient(h, 2, models.RoleTeacher)
	student := newTestClient(h, 3, models.RoleStudent)
	h.addClient(teacher1)
	h.addClient(teacher2)
	h.addClient(student)

	h.SendToRole(models.RoleTeacher, []byte(`{"type":"broadcast.new"}`))

	for i, c := range []*Client{teacher1, teacher2} {
		select {
		case <-c.send:
		default:
			t.Fatalf("teacher %d did not receive the broadcast", i)
		}
	}
	select {
	case <-student.send:
		t.Fatalf("student should not receive teacher broadcast")
	default:
	}
}

// send 队列满时丢弃而不是阻塞调用方。
func TestWsServer_SendToUser_FullQueueDoesNotBlock(t *testing.T) {
	h := NewWsServer()

	c := &Client{hub: h, send: make(chan []byte, 1), UserID: 1, Role: models.RoleTeacher}
	h.addClient(c)

	done := make(chan struct{})
	go func() {
		h.SendToUser(1, []byte("a"))
		h.SendToUser(1, []byte("b")) // 队列已满，应当直接丢弃
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("SendToUser blocked on full queue")
	}
}

// 并发注册/注销后成员关系保持一致。
func TestWsServer_ConcurrentRegistry(t *testing.T) {
	h := NewWsServer()

	const n = 64
	var wg sync.WaitGroup
	clients := make([]*Client, n)
	for i := 0; i < n; i++ {
		role := models.RoleTeacher
		if i%2 == 1 {
			role = models.RoleStudent
		}
		clients[i] = newTestClient(h, uint64(i%8), role)
	}

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			h.addClient(c)
		}(clients[i])
	}
	wg.Wait()

	_, conns := h.OnlineCount()
	if conns != n {
		t.Fatalf("expected %d conns, got %d", n, conns)
	}

	// 一半并发摘除，一半并发单播
	for i := 0; i < n; i++ {
		wg.Add(1)
		if i%2 == 0 {
			go func(c *Client) {
				defer wg.Done()
				h.removeClient(c, true)
			}(clients[i])
		} else {
			go func(uid uint64) {
				defer wg.Done()
				h.SendToUser(uid, []byte("x"))
			}(uint64(i % 8))
		}
	}
	wg.Wait()

	_, conns = h.OnlineCount()
	if conns != n/2 {
		t.Fatalf("expected %d conns after removal, got %d", n/2, conns)
	}

	// 索引互相印证：clients、userClients、roleClients 对得上
	h.mu.RLock()
	defer h.mu.RUnlock()
	fromUsers := 0
	for _, list := range h.userClients {
		fromUsers += len(list)
	}
	fromRoles := 0
	for _, set := range h.roleClients {
		fromRoles += len(set)
	}
	if fromUsers != len(h.clients) || fromRoles != len(h.clients) {
		t.Fatalf("index mismatch: clients=%d users=%d roles=%d",
			len(h.clients), fromUsers, fromRoles)
	}
}

func TestWsServer_HandleMessageDispatch(t *testing.T) {
	h := NewWsServer()

	var got []string
	h.Handle("broadcast.accept", func(c *Client, raw json.RawMessage) {
		got = append(got, fmt.Sprintf("accept:%d", c.UserID))
	})

	c := newTestClient(h, 42, models.RoleTeacher)

	h.handleMessage(c, []byte(`{"type":"broadcast.accept","request_id":7}`))
	// 未知类型：忽略不断连
	h.handleMessage(c, []byte(`{"type":"nope"}`))
	// 非法 JSON：忽略不断连
	h.handleMessage(c, []byte(`{`))

	if len(got) != 1 || got[0] != "accept:42" {
		t.Fatalf("unexpected dispatch results: %v", got)
	}
}
