package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"
)

// Message roles in the chat transcript.
const (
	RoleUser = "user"
	RoleAI   = "ai"
)

// ChatMessage mirrors a row of the chat_messages resource. Messages are
// immutable once stored; AI-authored rows are the source of truth for memo
// extraction.
type ChatMessage struct {
	ID        string `json:"id,omitempty"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	UserID    string `json:"user_id"`
	CreatedAt string `json:"created_at,omitempty"`
}

// ChatStore is the chat_messages CRUD surface scoped to one user.
type ChatStore struct {
	c      *Client
	userID string
}

// NewChatStore creates a ChatStore for the given user.
func NewChatStore(c *Client, userID string) *ChatStore {
	return &ChatStore{c: c, userID: userID}
}

// ListMessages returns the user's full transcript, oldest first.
func (s *ChatStore) ListMessages(ctx context.Context) ([]ChatMessage, error) {
	return s.list(ctx, false)
}

// ListAIMessages returns the user's AI-authored messages, oldest first, the
// order memo extraction depends on for stable first-wins deduplication.
func (s *ChatStore) ListAIMessages(ctx context.Context) ([]ChatMessage, error) {
	return s.list(ctx, true)
}

func (s *ChatStore) list(ctx context.Context, aiOnly bool) ([]ChatMessage, error) {
	params := url.Values{
		"select":  {"*"},
		"user_id": {Eq(s.userID)},
		"order":   {"created_at.asc"},
	}
	if aiOnly {
		params.Set("role", Eq(RoleAI))
	}

	data, err := s.c.Get(ctx, "/chat_messages", params)
	if err != nil {
		return nil, fmt.Errorf("listing chat messages: %w", err)
	}

	var msgs []ChatMessage
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("decoding chat messages: %w", err)
	}
	return msgs, nil
}

// Save stores a message, skipping the insert when the user already has a
// message with identical content.
func (s *ChatStore) Save(ctx context.Context, role, content string) error {
	params := url.Values{
		"select":  {"id"},
		"user_id": {Eq(s.userID)},
		"content": {Eq(content)},
	}
	data, err := s.c.Get(ctx, "/chat_messages", params)
	if err != nil {
		return fmt.Errorf("checking for duplicate message: %w", err)
	}
	var existing []ChatMessage
	if err := json.Unmarshal(data, &existing); err != nil {
		return fmt.Errorf("decoding duplicate check: %w", err)
	}
	if len(existing) > 0 {
		slog.Debug("skipping duplicate chat message", "role", role)
		return nil
	}

	msg := ChatMessage{
		Role:      role,
		Content:   content,
		UserID:    s.userID,
		CreatedAt: time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
	if _, err := s.c.Post(ctx, "/chat_messages", msg); err != nil {
		return fmt.Errorf("saving chat message: %w", err)
	}
	return nil
}

// DeleteAIMessages removes the user's AI-authored messages matching content
// and createdAt. Empty filter values are omitted.
func (s *ChatStore) DeleteAIMessages(ctx context.Context, content, createdAt string) error {
	params := url.Values{
		"user_id": {Eq(s.userID)},
		"role":    {Eq(RoleAI)},
	}
	if content != "" {
		params.Set("content", Eq(content))
	}
	if createdAt != "" {
		params.Set("created_at", Eq(createdAt))
	}
	return s.c.Delete(ctx, "/chat_messages", params)
}
