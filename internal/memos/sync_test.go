package memos

import (
	"context"
	"errors"
	"testing"
	"time"

	"memoflow/internal/supabase"
	"memoflow/internal/supatest"
	"memoflow/internal/tombstone"
)

// mapKV implements KV in memory.
type mapKV struct {
	m map[string]string
}

func newMapKV() *mapKV { return &mapKV{m: make(map[string]string)} }

func (kv *mapKV) Get(key string) (string, error) {
	v, ok := kv.m[key]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func (kv *mapKV) Set(key, value string) error {
	kv.m[key] = value
	return nil
}

// fakeClock hands out strictly increasing times, far enough apart that the
// cool-down window never spans two calls unless a test arranges it.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(time.Minute)
	return c.t
}

type syncFixture struct {
	srv   *supatest.Server
	kv    *mapKV
	tombs *tombstone.Store
	rec   *Reconciler
}

func newSyncFixture(t *testing.T, userID string) *syncFixture {
	t.Helper()
	srv := supatest.New()
	t.Cleanup(srv.Close)

	client := supabase.New(srv.URL(), "anon-key", "access-token-"+userID)
	kv := newMapKV()
	tombs := tombstone.Load(kv)

	rec := NewReconciler(
		supabase.NewChatStore(client, userID),
		supabase.NewMemoStore(client, userID),
		tombs, kv, userID, "access-token-"+userID, 3*time.Second,
	)
	rec.now = (&fakeClock{t: time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)}).now

	return &syncFixture{srv: srv, kv: kv, tombs: tombs, rec: rec}
}

func seedAIMessage(srv *supatest.Server, userID, content, createdAt string) string {
	return srv.Seed("chat_messages", supatest.Row{
		"role":       supabase.RoleAI,
		"content":    content,
		"user_id":    userID,
		"created_at": createdAt,
	})
}

const memoJSON = `{"isMemo": true, "content": "Buy milk", "dueDate": null, "priority": "HIGH", "category": "TASK"}`

func TestSync_InsertsExtractedMemo(t *testing.T) {
	fx := newSyncFixture(t, "user-1")
	seedAIMessage(fx.srv, "user-1", memoJSON, "2025-10-01T08:00:00.000Z")

	res, err := fx.rec.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !res.Ran() {
		t.Fatalf("Skipped = %v, want SkipNone", res.Skipped)
	}
	if res.Inserted != 1 {
		t.Errorf("Inserted = %d, want 1", res.Inserted)
	}
	if len(res.Memos) != 1 {
		t.Fatalf("len(Memos) = %d, want 1", len(res.Memos))
	}

	rows := fx.srv.Rows("memos")
	if len(rows) != 1 {
		t.Fatalf("memos table has %d rows, want 1", len(rows))
	}
	row := rows[0]
	if row["content"] != "Buy milk" {
		t.Errorf("content = %v, want Buy milk", row["content"])
	}
	if row["category"] != "WORK" {
		t.Errorf("category = %v, want WORK after TASK mapping", row["category"])
	}
	if row["created_at"] != "2025-10-01T08:00:00.000Z" {
		t.Errorf("created_at = %v, want chat message timestamp", row["created_at"])
	}
	if row["source"] != "chat_message" {
		t.Errorf("source = %v, want chat_message", row["source"])
	}
	if row["user_id"] != "user-1" {
		t.Errorf("user_id = %v, want user-1", row["user_id"])
	}
}

func TestSync_SecondPassInsertsNothing(t *testing.T) {
	fx := newSyncFixture(t, "user-2")
	seedAIMessage(fx.srv, "user-2", memoJSON, "2025-10-01T08:00:00.000Z")

	if _, err := fx.rec.Sync(context.Background()); err != nil {
		t.Fatalf("first Sync: %v", err)
	}
	res, err := fx.rec.Sync(context.Background())
	if err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	if !res.Ran() {
		t.Fatalf("Skipped = %v, want SkipNone", res.Skipped)
	}
	if res.Inserted != 0 {
		t.Errorf("second pass Inserted = %d, want 0", res.Inserted)
	}
	if len(fx.srv.Rows("memos")) != 1 {
		t.Errorf("memos table has %d rows after two passes, want 1", len(fx.srv.Rows("memos")))
	}
}

func TestSync_SameSecondDuplicatesCollapse(t *testing.T) {
	fx := newSyncFixture(t, "user-3")
	// Identical content, timestamps differing only in milliseconds.
	seedAIMessage(fx.srv, "user-3", memoJSON, "2025-10-01T08:00:00.111Z")
	seedAIMessage(fx.srv, "user-3", memoJSON, "2025-10-01T08:00:00.999Z")

	res, err := fx.rec.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if res.Inserted != 1 {
		t.Errorf("Inserted = %d, want 1", res.Inserted)
	}
	rows := fx.srv.Rows("memos")
	if len(rows) != 1 {
		t.Fatalf("memos table has %d rows, want 1", len(rows))
	}
	// First-wins: the earlier message supplies the stored timestamp.
	if rows[0]["created_at"] != "2025-10-01T08:00:00.111Z" {
		t.Errorf("created_at = %v, want the earliest duplicate's", rows[0]["created_at"])
	}
}

func TestSync_TombstonedKeyStaysDead(t *testing.T) {
	fx := newSyncFixture(t, "user-4")
	seedAIMessage(fx.srv, "user-4", memoJSON, "2025-10-01T08:00:00.000Z")

	if err := fx.tombs.Record("Buy milk__2025-10-01T08:00:00"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	res, err := fx.rec.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if res.Inserted != 0 {
		t.Errorf("Inserted = %d, want 0 for tombstoned key", res.Inserted)
	}
	if got := len(fx.srv.Rows("memos")); got != 0 {
		t.Errorf("memos table has %d rows, want 0", got)
	}
}

func TestSync_NonMemoMessagesIgnored(t *testing.T) {
	fx := newSyncFixture(t, "user-5")
	seedAIMessage(fx.srv, "user-5", "Sure, anything else I can help with?", "2025-10-01T08:00:00.000Z")
	seedAIMessage(fx.srv, "user-5", `{"isMemo": false, "content": "just chatting"}`, "2025-10-01T08:01:00.000Z")

	res, err := fx.rec.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if res.Inserted != 0 {
		t.Errorf("Inserted = %d, want 0", res.Inserted)
	}
}

func TestSync_NoUserSkipsWithoutRemoteCalls(t *testing.T) {
	fx := newSyncFixture(t, "")

	res, err := fx.rec.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if res.Skipped != SkipNoUser {
		t.Errorf("Skipped = %v, want SkipNoUser", res.Skipped)
	}
	if n := fx.srv.Requests(); n != 0 {
		t.Errorf("server saw %d requests, want 0", n)
	}
}

func TestSync_CooldownSkipsWithoutRemoteCalls(t *testing.T) {
	fx := newSyncFixture(t, "user-6")
	seedAIMessage(fx.srv, "user-6", memoJSON, "2025-10-01T08:00:00.000Z")

	// Pin the clock so the second trigger lands inside the window.
	base := time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)
	fx.rec.now = func() time.Time { return base }

	if _, err := fx.rec.Sync(context.Background()); err != nil {
		t.Fatalf("first Sync: %v", err)
	}
	before := fx.srv.Requests()

	fx.rec.now = func() time.Time { return base.Add(time.Second) }
	res, err := fx.rec.Sync(context.Background())
	if err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	if res.Skipped != SkipCooldown {
		t.Errorf("Skipped = %v, want SkipCooldown", res.Skipped)
	}
	if n := fx.srv.Requests(); n != before {
		t.Errorf("cool-down skip made %d remote calls, want 0", n-before)
	}

	// Past the window a pass runs again.
	fx.rec.now = func() time.Time { return base.Add(5 * time.Second) }
	res, err = fx.rec.Sync(context.Background())
	if err != nil {
		t.Fatalf("third Sync: %v", err)
	}
	if !res.Ran() {
		t.Errorf("Skipped = %v after cool-down elapsed, want SkipNone", res.Skipped)
	}
}

func TestSync_InFlightGuardSkips(t *testing.T) {
	fx := newSyncFixture(t, "user-7")

	if !fx.rec.guard.TryAcquire(fx.rec.guardKey) {
		t.Fatal("could not acquire guard for setup")
	}
	res, err := fx.rec.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if res.Skipped != SkipInFlight {
		t.Errorf("Skipped = %v, want SkipInFlight", res.Skipped)
	}
	if n := fx.srv.Requests(); n != 0 {
		t.Errorf("guarded skip made %d remote calls, want 0", n)
	}
	fx.rec.guard.Release(fx.rec.guardKey)

	res, err = fx.rec.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync after release: %v", err)
	}
	if !res.Ran() {
		t.Errorf("Skipped = %v after release, want SkipNone", res.Skipped)
	}
}

func TestSync_FetchFailureReleasesGuard(t *testing.T) {
	fx := newSyncFixture(t, "user-8")
	seedAIMessage(fx.srv, "user-8", memoJSON, "2025-10-01T08:00:00.000Z")

	fx.srv.FailNext("GET", "chat_messages", 1)
	if _, err := fx.rec.Sync(context.Background()); err == nil {
		t.Fatal("Sync with injected failure returned nil error")
	}

	// The fake clock steps past the cool-down, so only a wedged guard
	// could block this pass.
	res, err := fx.rec.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync after failure: %v", err)
	}
	if !res.Ran() {
		t.Errorf("Skipped = %v after failed pass, want SkipNone", res.Skipped)
	}
	if res.Inserted != 1 {
		t.Errorf("Inserted = %d, want 1", res.Inserted)
	}
}

func TestGuard_TryAcquireRelease(t *testing.T) {
	g := NewGuard()
	if !g.TryAcquire("k") {
		t.Fatal("first TryAcquire = false")
	}
	if g.TryAcquire("k") {
		t.Error("second TryAcquire = true while held")
	}
	if !g.TryAcquire("other") {
		t.Error("TryAcquire for a distinct key = false")
	}
	g.Release("k")
	if !g.TryAcquire("k") {
		t.Error("TryAcquire after Release = false")
	}
}
