package memos

import (
	"context"
	"fmt"
	"log/slog"

	"memoflow/internal/memo"
	"memoflow/internal/supabase"
	"memoflow/internal/tombstone"
)

// Service is the user-facing memo CRUD surface. Mutations go straight to
// the remote store; Delete additionally scrubs the originating chat
// messages and records a tombstone so sync never resurrects the memo.
type Service struct {
	memos *supabase.MemoStore
	chat  *supabase.ChatStore
	tombs *tombstone.Store
}

// NewService creates a Service over the given stores.
func NewService(memoStore *supabase.MemoStore, chat *supabase.ChatStore, tombs *tombstone.Store) *Service {
	return &Service{memos: memoStore, chat: chat, tombs: tombs}
}

// Add creates a user-authored memo. Creation is idempotent on content: an
// existing memo with the same content is returned instead of a new row.
// CreatedAt is left to the store so the duplicate check stays content-only.
func (s *Service) Add(ctx context.Context, text string, dueDate *string, priority, category string) (memo.Memo, error) {
	if text == "" {
		return memo.Memo{}, fmt.Errorf("empty memo text")
	}
	return s.memos.Create(ctx, memo.Memo{
		Title:    text,
		Content:  text,
		DueDate:  dueDate,
		Priority: priority,
		Category: category,
	})
}

// Edit replaces a memo's text.
func (s *Service) Edit(ctx context.Context, id, text string) error {
	if text == "" {
		return fmt.Errorf("empty memo text")
	}
	return s.memos.Update(ctx, id, map[string]any{
		"title":   text,
		"content": text,
	})
}

// ToggleComplete flips a memo's completion flag. The caller passes the
// value it currently displays; there is no read-back or rollback, so a
// failed call leaves the local view ahead of the store until the next
// refresh.
func (s *Service) ToggleComplete(ctx context.Context, id string, current bool) error {
	return s.memos.SetCompleted(ctx, id, !current)
}

// Delete removes a memo for good: the remote row, the AI chat messages it
// was extracted from (best effort), and a tombstone for its identity key.
// The row is captured up front because it is no longer fetchable once the
// remote delete lands.
func (s *Service) Delete(ctx context.Context, id string) error {
	target, err := s.memos.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("loading memo before delete: %w", err)
	}

	if err := s.memos.Delete(ctx, id); err != nil {
		return err
	}

	if err := s.chat.DeleteAIMessages(ctx, target.Content, target.CreatedAt); err != nil {
		slog.Warn("failed to delete originating chat messages", "memo_id", id, "error", err)
	}

	if err := s.tombs.Record(target.Key()); err != nil {
		return fmt.Errorf("recording tombstone: %w", err)
	}
	return nil
}
