package memos

import (
	"context"
	"testing"

	"memoflow/internal/supabase"
	"memoflow/internal/supatest"
	"memoflow/internal/tombstone"
)

type serviceFixture struct {
	srv   *supatest.Server
	tombs *tombstone.Store
	svc   *Service
	memos *supabase.MemoStore
}

func newServiceFixture(t *testing.T, userID string) *serviceFixture {
	t.Helper()
	srv := supatest.New()
	t.Cleanup(srv.Close)

	client := supabase.New(srv.URL(), "anon-key", "access-token")
	memoStore := supabase.NewMemoStore(client, userID)
	chatStore := supabase.NewChatStore(client, userID)
	tombs := tombstone.Load(newMapKV())

	return &serviceFixture{
		srv:   srv,
		tombs: tombs,
		svc:   NewService(memoStore, chatStore, tombs),
		memos: memoStore,
	}
}

func TestServiceAdd(t *testing.T) {
	fx := newServiceFixture(t, "user-1")

	m, err := fx.svc.Add(context.Background(), "Pay rent", nil, "", "")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if m.ID == "" {
		t.Error("Add returned memo without id")
	}

	rows := fx.srv.Rows("memos")
	if len(rows) != 1 {
		t.Fatalf("memos table has %d rows, want 1", len(rows))
	}
	if rows[0]["title"] != "Pay rent" || rows[0]["content"] != "Pay rent" {
		t.Errorf("row = %v, want title and content set to text", rows[0])
	}
	if rows[0]["priority"] != "MEDIUM" {
		t.Errorf("priority = %v, want MEDIUM default", rows[0]["priority"])
	}
}

func TestServiceAdd_DuplicateContentReturnsExisting(t *testing.T) {
	fx := newServiceFixture(t, "user-1")

	first, err := fx.svc.Add(context.Background(), "Pay rent", nil, "", "")
	if err != nil {
		t.Fatalf("first Add: %v", err)
	}
	second, err := fx.svc.Add(context.Background(), "Pay rent", nil, "", "")
	if err != nil {
		t.Fatalf("second Add: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("second Add id = %s, want existing %s", second.ID, first.ID)
	}
	if got := len(fx.srv.Rows("memos")); got != 1 {
		t.Errorf("memos table has %d rows, want 1", got)
	}
}

func TestServiceAdd_EmptyText(t *testing.T) {
	fx := newServiceFixture(t, "user-1")
	if _, err := fx.svc.Add(context.Background(), "", nil, "", ""); err == nil {
		t.Error("Add with empty text returned nil error")
	}
}

func TestServiceEdit(t *testing.T) {
	fx := newServiceFixture(t, "user-1")
	id := fx.srv.Seed("memos", supatest.Row{
		"user_id": "user-1",
		"title":   "old",
		"content": "old",
	})

	if err := fx.svc.Edit(context.Background(), id, "new text"); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	rows := fx.srv.Rows("memos")
	if rows[0]["title"] != "new text" || rows[0]["content"] != "new text" {
		t.Errorf("row = %v, want title and content replaced", rows[0])
	}
}

func TestServiceToggleComplete(t *testing.T) {
	fx := newServiceFixture(t, "user-1")
	id := fx.srv.Seed("memos", supatest.Row{
		"user_id":      "user-1",
		"content":      "task",
		"is_completed": false,
	})

	if err := fx.svc.ToggleComplete(context.Background(), id, false); err != nil {
		t.Fatalf("ToggleComplete: %v", err)
	}
	if got := fx.srv.Rows("memos")[0]["is_completed"]; got != true {
		t.Errorf("is_completed = %v, want true", got)
	}

	if err := fx.svc.ToggleComplete(context.Background(), id, true); err != nil {
		t.Fatalf("ToggleComplete back: %v", err)
	}
	if got := fx.srv.Rows("memos")[0]["is_completed"]; got != false {
		t.Errorf("is_completed = %v, want false", got)
	}
}

func TestServiceDelete(t *testing.T) {
	fx := newServiceFixture(t, "user-1")
	id := fx.srv.Seed("memos", supatest.Row{
		"user_id":    "user-1",
		"content":    "Buy milk",
		"created_at": "2025-10-01T08:00:00.000Z",
	})
	fx.srv.Seed("chat_messages", supatest.Row{
		"user_id":    "user-1",
		"role":       supabase.RoleAI,
		"content":    "Buy milk",
		"created_at": "2025-10-01T08:00:00.000Z",
	})
	fx.srv.Seed("chat_messages", supatest.Row{
		"user_id":    "user-1",
		"role":       supabase.RoleUser,
		"content":    "remind me to buy milk",
		"created_at": "2025-10-01T07:59:58.000Z",
	})

	if err := fx.svc.Delete(context.Background(), id); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if got := len(fx.srv.Rows("memos")); got != 0 {
		t.Errorf("memos table has %d rows, want 0", got)
	}
	chat := fx.srv.Rows("chat_messages")
	if len(chat) != 1 {
		t.Fatalf("chat_messages has %d rows, want the user message only", len(chat))
	}
	if chat[0]["role"] != supabase.RoleUser {
		t.Errorf("surviving message role = %v, want user", chat[0]["role"])
	}

	if !fx.tombs.Contains("Buy milk__2025-10-01T08:00:00") {
		t.Error("identity key not tombstoned after Delete")
	}
}

func TestServiceDelete_UnknownID(t *testing.T) {
	fx := newServiceFixture(t, "user-1")
	if err := fx.svc.Delete(context.Background(), "missing"); err == nil {
		t.Error("Delete of unknown id returned nil error")
	}
}

func TestServiceDelete_ChatScrubFailureStillTombstones(t *testing.T) {
	fx := newServiceFixture(t, "user-1")
	id := fx.srv.Seed("memos", supatest.Row{
		"user_id":    "user-1",
		"content":    "Buy milk",
		"created_at": "2025-10-01T08:00:00.000Z",
	})

	fx.srv.FailNext("DELETE", "chat_messages", 1)
	if err := fx.svc.Delete(context.Background(), id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !fx.tombs.Contains("Buy milk__2025-10-01T08:00:00") {
		t.Error("identity key not tombstoned when chat scrub fails")
	}
}
