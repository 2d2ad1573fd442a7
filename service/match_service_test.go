package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMatchServiceForTest(t *testing.T) (*MatchService, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, sqldb := newMockDB(t)

	base := &Service{DB: db, TablePrefix: "mt_"}
	base.Notify = NewNotificationService(base)
	conv := NewConversationService(base)
	ms := NewMatchService(base, conv)

	return ms, mock, func() { _ = sqldb.Close() }
}

func broadcastRequestRows(id, requesterID uint64, state string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "request_uuid", "requester_id", "content", "attachments",
		"state", "accepted_by", "expires_at", "created_at", "updated_at",
	}).AddRow(id, "uuid-1", requesterID, "求一节高数辅导", nil, state, nil, nil, now, now)
}

// 拒绝事务开头的请求行锁
const lockRequestPattern = "SELECT \\* FROM `mt_broadcast_request`.*FOR UPDATE"

// 接单赢家：两道闸全过（先请求后台账行），同事务里物化会话、写首条消息和通知。
func TestMatchService_AcceptBroadcast_Winner(t *testing.T) {
	ms, mock, closeFn := newMatchServiceForTest(t)
	defer closeFn()

	mock.ExpectBegin()
	// 第一道闸：请求 pending -> accepted
	mock.ExpectExec("UPDATE `mt_broadcast_request` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// 第二道闸：自己的台账行 pending -> accepted
	mock.ExpectExec("UPDATE `mt_broadcast_responder` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// 其余 pending 行被动拒绝
	mock.ExpectExec("UPDATE `mt_broadcast_responder` SET").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery("SELECT \\* FROM `mt_broadcast_request`").
		WillReturnRows(broadcastRequestRows(7, 1, "accepted"))
	// 物化会话：会话 + 两个成员 + 首条消息 + 冗余字段
	mock.ExpectExec("INSERT INTO `mt_conversation`").
		WillReturnResult(sqlmock.NewResult(10, 1))
	mock.ExpectExec("INSERT INTO `mt_conversation_member`").
		WillReturnResult(sqlmock.NewResult(20, 2))
	mock.ExpectExec("INSERT INTO `mt_message`").
		WillReturnResult(sqlmock.NewResult(30, 1))
	mock.ExpectExec("UPDATE `mt_conversation` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// 发起人通知（同事务落库）
	mock.ExpectExec("INSERT INTO `mt_notification`").
		WillReturnResult(sqlmock.NewResult(40, 1))
	mock.ExpectCommit()
	// commit 之后的"请求已解决"推送要查台账里的全部 teacher
	mock.ExpectQuery("SELECT `responder_id` FROM `mt_broadcast_responder`").
		WillReturnRows(sqlmock.NewRows([]string{"responder_id"}).AddRow(uint64(42)).AddRow(uint64(43)))

	ret, err := ms.AcceptBroadcast(42, 7)
	if err != nil {
		t.Fatalf("AcceptBroadcast: %v", err)
	}
	if ret == nil || ret.Conversation == nil || ret.Message == nil {
		t.Fatalf("expected conversation and message, got %#v", ret)
	}
	if ret.Conversation.ID != 10 {
		t.Fatalf("expected conversation id 10, got %d", ret.Conversation.ID)
	}
	if ret.Message.SenderID != 1 {
		t.Fatalf("first message should be authored by requester, got sender %d", ret.Message.SenderID)
	}
	if ret.Message.Content != "求一节高数辅导" {
		t.Fatalf("first message should carry the request content, got %q", ret.Message.Content)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

// 输家：请求闸没过（已被接走），不持任何台账行就拿到状态冲突。
func TestMatchService_AcceptBroadcast_LoserGetsStateConflict(t *testing.T) {
	ms, mock, closeFn := newMatchServiceForTest(t)
	defer closeFn()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `mt_broadcast_request` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	// 归类：请求存在但已离开 pending
	mock.ExpectQuery("SELECT \\* FROM `mt_broadcast_request`").
		WillReturnRows(broadcastRequestRows(7, 1, "accepted"))
	mock.ExpectRollback()

	_, err := ms.AcceptBroadcast(43, 7)
	if !errors.Is(err, ErrStateConflict) {
		t.Fatalf("expected ErrStateConflict, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

// 已拒绝过的人再来接：请求闸过了但自己的行已是 declined，回滚并报冲突。
func TestMatchService_AcceptBroadcast_AlreadyDeclinedResponder(t *testing.T) {
	ms, mock, closeFn := newMatchServiceForTest(t)
	defer closeFn()

	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `mt_broadcast_request` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `mt_broadcast_responder` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	// 归类：行存在但已离开 pending
	mock.ExpectQuery("SELECT \\* FROM `mt_broadcast_responder`").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "broadcast_request_id", "responder_id", "state", "decided_at", "created_at", "updated_at",
		}).AddRow(uint64(2), uint64(7), uint64(43), "declined", now, now, now))
	mock.ExpectRollback()

	_, err := ms.AcceptBroadcast(43, 7)
	if !errors.Is(err, ErrStateConflict) {
		t.Fatalf("expected ErrStateConflict, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

// 没被分发到的人来抢：请求闸过了但行不存在，整体回滚并归类为越权。
func TestMatchService_AcceptBroadcast_NotInvited(t *testing.T) {
	ms, mock, closeFn := newMatchServiceForTest(t)
	defer closeFn()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `mt_broadcast_request` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `mt_broadcast_responder` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT \\* FROM `mt_broadcast_responder`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("SELECT \\* FROM `mt_broadcast_request`").
		WillReturnRows(broadcastRequestRows(7, 1, "pending"))
	mock.ExpectRollback()

	_, err := ms.AcceptBroadcast(99, 7)
	if !errors.Is(err, ErrAuthorization) {
		t.Fatalf("expected ErrAuthorization, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

// 请求不存在：请求闸没过且归类时也查不到 -> ErrNotFound。
func TestMatchService_AcceptBroadcast_NotFound(t *testing.T) {
	ms, mock, closeFn := newMatchServiceForTest(t)
	defer closeFn()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `mt_broadcast_request` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT \\* FROM `mt_broadcast_request`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := ms.AcceptBroadcast(42, 404)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

// K 个人同时接单：恰好一个拿到会话，其余全部 ErrStateConflict。
func TestMatchService_AcceptBroadcast_ConcurrentSingleWinner(t *testing.T) {
	ms, mock, closeFn := newMatchServiceForTest(t)
	defer closeFn()

	const k = 4
	mock.MatchExpectationsInOrder(false)

	for i := 0; i < k; i++ {
		mock.ExpectBegin()
	}
	// 请求闸：一个 1 行，其余 0 行
	mock.ExpectExec("UPDATE `mt_broadcast_request` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	for i := 0; i < k-1; i++ {
		mock.ExpectExec("UPDATE `mt_broadcast_request` SET").
			WillReturnResult(sqlmock.NewResult(0, 0))
	}
	// 赢家（串行执行）：自己的台账行，再批量被动拒绝
	mock.ExpectExec("UPDATE `mt_broadcast_responder` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `mt_broadcast_responder` SET").
		WillReturnResult(sqlmock.NewResult(0, k-1))
	// 赢家事务内读请求 + 输家归类读，共 K 次同样的查询
	for i := 0; i < k; i++ {
		mock.ExpectQuery("SELECT \\* FROM `mt_broadcast_request`").
			WillReturnRows(broadcastRequestRows(7, 1, "accepted"))
	}
	mock.ExpectExec("INSERT INTO `mt_conversation`").
		WillReturnResult(sqlmock.NewResult(10, 1))
	mock.ExpectExec("INSERT INTO `mt_conversation_member`").
		WillReturnResult(sqlmock.NewResult(20, 2))
	mock.ExpectExec("INSERT INTO `mt_message`").
		WillReturnResult(sqlmock.NewResult(30, 1))
	mock.ExpectExec("UPDATE `mt_conversation` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `mt_notification`").
		WillReturnResult(sqlmock.NewResult(40, 1))
	mock.ExpectCommit()
	for i := 0; i < k-1; i++ {
		mock.ExpectRollback()
	}
	mock.ExpectQuery("SELECT `responder_id` FROM `mt_broadcast_responder`").
		WillReturnRows(sqlmock.NewRows([]string{"responder_id"}).AddRow(uint64(42)))

	var wg sync.WaitGroup
	results := make([]*AcceptResult, k)
	errs := make([]error, k)
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = ms.AcceptBroadcast(uint64(42+i), 7)
		}(i)
	}
	wg.Wait()

	winners, conflicts := 0, 0
	for i := 0; i < k; i++ {
		switch {
		case errs[i] == nil:
			winners++
			if results[i] == nil || results[i].Conversation == nil {
				t.Fatalf("winner %d got no conversation", i)
			}
		case errors.Is(errs[i], ErrStateConflict):
			conflicts++
		default:
			t.Fatalf("responder %d: unexpected error %v", i, errs[i])
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly 1 winner, got %d", winners)
	}
	if conflicts != k-1 {
		t.Fatalf("expected %d conflicts, got %d", k-1, conflicts)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

// 最后一个拒绝者：持有请求行锁计数，触发请求关闭并给发起人落通知。
func TestMatchService_DeclineBroadcast_LastDeclineCloses(t *testing.T) {
	ms, mock, closeFn := newMatchServiceForTest(t)
	defer closeFn()

	mock.ExpectBegin()
	mock.ExpectQuery(lockRequestPattern).
		WillReturnRows(broadcastRequestRows(7, 1, "pending"))
	mock.ExpectExec("UPDATE `mt_broadcast_responder` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `mt_broadcast_responder`").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(0))
	mock.ExpectExec("UPDATE `mt_broadcast_request` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `mt_notification`").
		WillReturnResult(sqlmock.NewResult(50, 1))
	mock.ExpectCommit()

	allDeclined, err := ms.DeclineBroadcast(42, 7)
	if err != nil {
		t.Fatalf("DeclineBroadcast: %v", err)
	}
	if !allDeclined {
		t.Fatalf("expected allDeclined=true")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

// 还有人没决定：拒绝只落在自己的台账行，请求保持 pending。
func TestMatchService_DeclineBroadcast_OthersStillPending(t *testing.T) {
	ms, mock, closeFn := newMatchServiceForTest(t)
	defer closeFn()

	mock.ExpectBegin()
	mock.ExpectQuery(lockRequestPattern).
		WillReturnRows(broadcastRequestRows(7, 1, "pending"))
	mock.ExpectExec("UPDATE `mt_broadcast_responder` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `mt_broadcast_responder`").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(2))
	mock.ExpectCommit()

	allDeclined, err := ms.DeclineBroadcast(42, 7)
	if err != nil {
		t.Fatalf("DeclineBroadcast: %v", err)
	}
	if allDeclined {
		t.Fatalf("expected allDeclined=false")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

// 最后两个拒绝者同时到达：请求行锁把两个事务排成队，后到的计数读到 0，
// 恰好一个触发关闭并给发起人落通知。不串行化的话两边都会看到"还剩 1"，
// 请求永远停在 pending。
func TestMatchService_DeclineBroadcast_ConcurrentLastTwoStillClose(t *testing.T) {
	ms, mock, closeFn := newMatchServiceForTest(t)
	defer closeFn()

	mock.MatchExpectationsInOrder(false)

	mock.ExpectBegin()
	mock.ExpectBegin()
	mock.ExpectQuery(lockRequestPattern).
		WillReturnRows(broadcastRequestRows(7, 1, "pending"))
	mock.ExpectQuery(lockRequestPattern).
		WillReturnRows(broadcastRequestRows(7, 1, "pending"))
	mock.ExpectExec("UPDATE `mt_broadcast_responder` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `mt_broadcast_responder` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// 先到的还看到对方 pending，后到的看到 0
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `mt_broadcast_responder`").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(1))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `mt_broadcast_responder`").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(0))
	mock.ExpectExec("UPDATE `mt_broadcast_request` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `mt_notification`").
		WillReturnResult(sqlmock.NewResult(60, 1))
	mock.ExpectCommit()
	mock.ExpectCommit()

	var wg sync.WaitGroup
	closedFlags := make([]bool, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			closedFlags[i], errs[i] = ms.DeclineBroadcast(uint64(42+i), 7)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("decliner %d: %v", i, err)
		}
	}
	closes := 0
	for _, c := range closedFlags {
		if c {
			closes++
		}
	}
	if closes != 1 {
		t.Fatalf("expected exactly one decliner to close the request, got %d", closes)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

// 没有任何可分发的 teacher：不落任何数据，直接报错。
func TestMatchService_CreateBroadcast_NoEligibleResponders(t *testing.T) {
	ms, mock, closeFn := newMatchServiceForTest(t)
	defer closeFn()

	now := time.Now()
	mock.ExpectQuery("SELECT \\* FROM `mt_user`").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "uid", "username", "nickname", "password", "avatar", "role", "status",
			"last_login_at", "last_active_at", "created_at", "updated_at", "deleted_at",
		}).AddRow(uint64(1), "u1", "alice", "小明", "hash", "", "student", 1, nil, nil, now, now, nil))
	mock.ExpectQuery("SELECT `id` FROM `mt_user`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := ms.CreateBroadcast(1, "求一节高数辅导", nil)
	if !errors.Is(err, ErrNoEligibleResponders) {
		t.Fatalf("expected ErrNoEligibleResponders, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

// 发布成功：请求 + 台账行 + 通知一个事务落库。
func TestMatchService_CreateBroadcast_FanOut(t *testing.T) {
	ms, mock, closeFn := newMatchServiceForTest(t)
	defer closeFn()

	now := time.Now()
	mock.ExpectQuery("SELECT \\* FROM `mt_user`").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "uid", "username", "nickname", "password", "avatar", "role", "status",
			"last_login_at", "last_active_at", "created_at", "updated_at", "deleted_at",
		}).AddRow(uint64(1), "u1", "alice", "小明", "hash", "", "student", 1, nil, nil, now, now, nil))
	mock.ExpectQuery("SELECT `id` FROM `mt_user`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uint64(42)).AddRow(uint64(43)))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `mt_broadcast_request`").
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec("INSERT INTO `mt_broadcast_responder`").
		WillReturnResult(sqlmock.NewResult(1, 2))
	mock.ExpectExec("INSERT INTO `mt_notification`").
		WillReturnResult(sqlmock.NewResult(1, 2))
	mock.ExpectCommit()

	dto, err := ms.CreateBroadcast(1, "求一节高数辅导", nil)
	if err != nil {
		t.Fatalf("CreateBroadcast: %v", err)
	}
	if dto.ID != 7 {
		t.Fatalf("expected request id 7, got %d", dto.ID)
	}
	if dto.State != "pending" {
		t.Fatalf("expected pending, got %s", dto.State)
	}
	if dto.RequestUUID == "" {
		t.Fatalf("expected request_uuid to be generated")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}
