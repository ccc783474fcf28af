// Package chat orchestrates the conversation loop: persist the user turn,
// ask the model for a reply, persist it, and surface any memo draft the
// reply carries.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"memoflow/internal/genai"
	"memoflow/internal/memo"
	"memoflow/internal/storage"
	"memoflow/internal/supabase"
)

// Generator produces an AI reply for a user message.
type Generator interface {
	Generate(ctx context.Context, message, systemInstruction string, jsonSchema *genai.Schema) (string, error)
}

// MemoCreator persists a confirmed memo draft.
type MemoCreator interface {
	Create(ctx context.Context, m memo.Memo) (memo.Memo, error)
}

// KV is the local persistence slice used for the transcript cache.
type KV interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// Exchange is one completed chat turn. Draft is non-nil when the reply
// classified the message as a memo; it stays pending until ConfirmDraft.
type Exchange struct {
	Reply string
	Draft *memo.Draft
}

// Service runs the chat loop for one user session.
type Service struct {
	store  *supabase.ChatStore
	gen    Generator
	memos  MemoCreator
	kv     KV
	userID string
	now    func() time.Time
}

// NewService creates a chat Service.
func NewService(store *supabase.ChatStore, gen Generator, memos MemoCreator, kv KV, userID string) *Service {
	return &Service{
		store:  store,
		gen:    gen,
		memos:  memos,
		kv:     kv,
		userID: userID,
		now:    time.Now,
	}
}

// Send runs one chat turn. The user message is persisted before the model
// call, the AI reply after; with no user identity both writes are skipped
// with a warning and the turn still completes.
func (s *Service) Send(ctx context.Context, text string) (Exchange, error) {
	if text == "" {
		return Exchange{}, fmt.Errorf("empty message")
	}

	if s.userID == "" {
		slog.Warn("chat message not persisted: no user identity")
	} else if err := s.store.Save(ctx, supabase.RoleUser, text); err != nil {
		return Exchange{}, fmt.Errorf("saving user message: %w", err)
	}

	reply, err := s.gen.Generate(ctx, text, genai.MemoInstruction(s.now()), genai.MemoSchema())
	if err != nil {
		return Exchange{}, fmt.Errorf("generating reply: %w", err)
	}

	if s.userID != "" {
		if err := s.store.Save(ctx, supabase.RoleAI, reply); err != nil {
			return Exchange{}, fmt.Errorf("saving ai message: %w", err)
		}
	}

	ex := Exchange{Reply: reply}
	if d, ok := memo.ExtractDraft(reply); ok {
		ex.Draft = &d
	}
	return ex, nil
}

// ConfirmDraft saves a pending draft as a memo. Creation is idempotent, so
// confirming the same draft twice yields one memo.
func (s *Service) ConfirmDraft(ctx context.Context, d memo.Draft) (memo.Memo, error) {
	if d.Content == "" {
		return memo.Memo{}, fmt.Errorf("draft has no content")
	}
	created, err := s.memos.Create(ctx, memo.Memo{
		Title:    d.Content,
		Content:  d.Content,
		DueDate:  d.DueDate,
		Priority: d.Priority,
		Category: d.Category,
		Source:   "chat_confirm",
	})
	if err != nil {
		return memo.Memo{}, fmt.Errorf("confirming draft: %w", err)
	}
	return created, nil
}

// History returns the transcript oldest-first. Each successful fetch
// refreshes the local cache; when the fetch fails the cached transcript is
// returned instead so the view survives a flaky connection.
func (s *Service) History(ctx context.Context) ([]supabase.ChatMessage, error) {
	msgs, err := s.store.ListMessages(ctx)
	if err != nil {
		cached, ok := s.cachedHistory()
		if !ok {
			return nil, fmt.Errorf("listing chat history: %w", err)
		}
		slog.Warn("serving cached chat history", "error", err)
		return cached, nil
	}

	if data, err := json.Marshal(msgs); err == nil {
		if err := s.kv.Set(storage.KeyChatTranscript, string(data)); err != nil {
			slog.Warn("failed to cache chat history", "error", err)
		}
	}
	return msgs, nil
}

func (s *Service) cachedHistory() ([]supabase.ChatMessage, bool) {
	raw, err := s.kv.Get(storage.KeyChatTranscript)
	if err != nil {
		return nil, false
	}
	var msgs []supabase.ChatMessage
	if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
		slog.Warn("discarding corrupt chat history cache", "error", err)
		return nil, false
	}
	return msgs, true
}
