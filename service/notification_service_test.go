package service

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cydxin/match-sdk/models"
)

func TestNotificationService_ListUserNotifications(t *testing.T) {
	db, mock, sqldb := newMockDB(t)
	defer func() { _ = sqldb.Close() }()

	base := &Service{DB: db, TablePrefix: "mt_"}
	ns := NewNotificationService(base)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "type", "content", "payload", "reference_id", "is_read", "read_at", "created_at", "deleted_at"}).
		AddRow(uint64(5), uint64(42), "broadcast.accepted", "你的求助已被接单", nil, uint64(7), false, nil, now, nil).
		AddRow(uint64(3), uint64(42), "broadcast.new", "求一节高数辅导", nil, uint64(7), true, now, now, nil)

	mock.ExpectQuery("SELECT \\* FROM `mt_notification`").
		WillReturnRows(rows)

	list, nextCursor, err := ns.ListUserNotifications(42, 0, 0, 0, false)
	if err != nil {
		t.Fatalf("ListUserNotifications: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(list))
	}
	// 游标指向本页最旧一条
	if nextCursor != 3 {
		t.Fatalf("expected next_cursor 3, got %d", nextCursor)
	}
	if list[0].Type != "broadcast.accepted" || list[0].IsRead {
		t.Fatalf("unexpected first row: %#v", list[0])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestNotificationService_MarkReadByIDs(t *testing.T) {
	db, mock, sqldb := newMockDB(t)
	defer func() { _ = sqldb.Close() }()

	base := &Service{DB: db, TablePrefix: "mt_"}
	ns := NewNotificationService(base)

	mock.ExpectExec("UPDATE `mt_notification` SET").
		WithArgs(true, sqlmock.AnyArg(), uint64(42), uint64(1), uint64(2)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	if err := ns.MarkReadByIDs(42, []uint64{1, 2}); err != nil {
		t.Fatalf("MarkReadByIDs: %v", err)
	}

	// 空列表直接返回，不产生 SQL
	if err := ns.MarkReadByIDs(42, nil); err != nil {
		t.Fatalf("MarkReadByIDs empty: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

// 批量写入带去重兜底：撞上 idx_notify_dedupe 唯一键时落空而不是报错。
func TestNotificationService_CreateManyInTx_DedupeOnUniqueKey(t *testing.T) {
	db, mock, sqldb := newMockDB(t)
	defer func() { _ = sqldb.Close() }()

	base := &Service{DB: db, TablePrefix: "mt_"}
	ns := NewNotificationService(base)

	mock.ExpectBegin()
	// 重复投递同一 (user_id, type, reference_id) 只落一行
	mock.ExpectExec("INSERT INTO `mt_notification`.*ON DUPLICATE KEY UPDATE").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx := db.Begin()
	rows := []models.Notification{
		{UserID: 42, Type: "broadcast.new", Content: "求一节高数辅导", ReferenceID: 7},
		{UserID: 42, Type: "broadcast.new", Content: "求一节高数辅导", ReferenceID: 7},
	}
	if err := ns.CreateManyInTx(tx, rows); err != nil {
		t.Fatalf("CreateManyInTx: %v", err)
	}
	if err := tx.Commit().Error; err != nil {
		t.Fatalf("commit: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestNotificationService_CreateInTx_Validation(t *testing.T) {
	db, _, sqldb := newMockDB(t)
	defer func() { _ = sqldb.Close() }()

	base := &Service{DB: db, TablePrefix: "mt_"}
	ns := NewNotificationService(base)

	if err := ns.CreateInTx(db, nil); err != nil {
		t.Fatalf("nil notification should be a no-op, got %v", err)
	}
}
