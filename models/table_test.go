package models

import "testing"

func TestBeforeCreate_GeneratesUUIDs(t *testing.T) {
	u := &User{}
	if err := u.BeforeCreate(nil); err != nil {
		t.Fatalf("User.BeforeCreate: %v", err)
	}
	if u.UID == "" {
		t.Fatalf("expected uid to be generated")
	}

	// 已有值不覆盖
	u2 := &User{UID: "fixed"}
	_ = u2.BeforeCreate(nil)
	if u2.UID != "fixed" {
		t.Fatalf("expected uid to be kept, got %s", u2.UID)
	}

	b := &BroadcastRequest{}
	if err := b.BeforeCreate(nil); err != nil {
		t.Fatalf("BroadcastRequest.BeforeCreate: %v", err)
	}
	if b.RequestUUID == "" {
		t.Fatalf("expected request_uuid to be generated")
	}

	m := &Message{}
	if err := m.BeforeCreate(nil); err != nil {
		t.Fatalf("Message.BeforeCreate: %v", err)
	}
	if m.MessageUUID == "" {
		t.Fatalf("expected message_uuid to be generated")
	}
}

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		User{}.TableName():               "mt_user",
		BroadcastRequest{}.TableName():   "mt_broadcast_request",
		BroadcastResponder{}.TableName(): "mt_broadcast_responder",
		Conversation{}.TableName():       "mt_conversation",
		ConversationMember{}.TableName(): "mt_conversation_member",
		Message{}.TableName():            "mt_message",
		Notification{}.TableName():       "mt_notification",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("table name mismatch: got %s want %s", got, want)
		}
	}
}
