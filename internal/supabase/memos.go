package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"memoflow/internal/memo"
)

// ErrNoRows is returned when a lookup by id matches nothing.
var ErrNoRows = errors.New("no rows")

// MemoStore is the memos CRUD surface scoped to one user. Every filter
// carries the user id so an id collision can never touch another user's
// rows.
type MemoStore struct {
	c      *Client
	userID string
}

// NewMemoStore creates a MemoStore for the given user.
func NewMemoStore(c *Client, userID string) *MemoStore {
	return &MemoStore{c: c, userID: userID}
}

// List returns all of the user's memos, newest first.
func (s *MemoStore) List(ctx context.Context) ([]memo.Memo, error) {
	params := url.Values{
		"select":  {"*"},
		"user_id": {Eq(s.userID)},
		"order":   {"created_at.desc"},
	}
	data, err := s.c.Get(ctx, "/memos", params)
	if err != nil {
		return nil, fmt.Errorf("listing memos: %w", err)
	}

	var memos []memo.Memo
	if err := json.Unmarshal(data, &memos); err != nil {
		return nil, fmt.Errorf("decoding memos: %w", err)
	}
	return memos, nil
}

// ListKeyRows returns only the columns needed to build the identity-key
// set of already-persisted memos.
func (s *MemoStore) ListKeyRows(ctx context.Context) ([]memo.Memo, error) {
	params := url.Values{
		"select":  {"id,content,created_at"},
		"user_id": {Eq(s.userID)},
	}
	data, err := s.c.Get(ctx, "/memos", params)
	if err != nil {
		return nil, fmt.Errorf("listing memo keys: %w", err)
	}

	var memos []memo.Memo
	if err := json.Unmarshal(data, &memos); err != nil {
		return nil, fmt.Errorf("decoding memo keys: %w", err)
	}
	return memos, nil
}

// Get returns one memo by id, or ErrNoRows.
func (s *MemoStore) Get(ctx context.Context, id string) (memo.Memo, error) {
	params := url.Values{
		"select":  {"*"},
		"id":      {Eq(id)},
		"user_id": {Eq(s.userID)},
	}
	data, err := s.c.Get(ctx, "/memos", params)
	if err != nil {
		return memo.Memo{}, fmt.Errorf("fetching memo %s: %w", id, err)
	}

	var memos []memo.Memo
	if err := json.Unmarshal(data, &memos); err != nil {
		return memo.Memo{}, fmt.Errorf("decoding memo %s: %w", id, err)
	}
	if len(memos) == 0 {
		return memo.Memo{}, ErrNoRows
	}
	return memos[0], nil
}

// Create inserts a memo, unless the user already has a row with the same
// content (and creation timestamp when one is set), in which case the
// existing row is returned untouched.
func (s *MemoStore) Create(ctx context.Context, m memo.Memo) (memo.Memo, error) {
	params := url.Values{
		"select":  {"id,content,created_at"},
		"user_id": {Eq(s.userID)},
		"content": {Eq(m.Content)},
	}
	if m.CreatedAt != "" {
		params.Set("created_at", Eq(m.CreatedAt))
	}
	data, err := s.c.Get(ctx, "/memos", params)
	if err != nil {
		return memo.Memo{}, fmt.Errorf("checking for existing memo: %w", err)
	}
	var existing []memo.Memo
	if err := json.Unmarshal(data, &existing); err != nil {
		return memo.Memo{}, fmt.Errorf("decoding existing check: %w", err)
	}
	if len(existing) > 0 {
		return existing[0], nil
	}

	m.UserID = s.userID
	if m.Title == "" {
		m.Title = m.Content
	}
	m.Priority = memo.NormalizePriority(m.Priority)
	m.Category = memo.NormalizeCategory(m.Category)

	inserted, err := s.c.Post(ctx, "/memos", m)
	if err != nil {
		return memo.Memo{}, fmt.Errorf("inserting memo: %w", err)
	}
	var rows []memo.Memo
	if err := json.Unmarshal(inserted, &rows); err != nil {
		return memo.Memo{}, fmt.Errorf("decoding inserted memo: %w", err)
	}
	if len(rows) == 0 {
		return memo.Memo{}, fmt.Errorf("inserting memo: empty representation")
	}
	return rows[0], nil
}

// Update patches the given fields on one memo, scoped by id and user.
func (s *MemoStore) Update(ctx context.Context, id string, fields map[string]any) error {
	params := url.Values{
		"id":      {Eq(id)},
		"user_id": {Eq(s.userID)},
	}
	if err := s.c.Patch(ctx, "/memos", params, fields); err != nil {
		return fmt.Errorf("updating memo %s: %w", id, err)
	}
	return nil
}

// SetCompleted sets the completion flag on one memo.
func (s *MemoStore) SetCompleted(ctx context.Context, id string, completed bool) error {
	return s.Update(ctx, id, map[string]any{"is_completed": completed})
}

// Delete removes one memo row.
func (s *MemoStore) Delete(ctx context.Context, id string) error {
	params := url.Values{
		"id":      {Eq(id)},
		"user_id": {Eq(s.userID)},
	}
	if err := s.c.Delete(ctx, "/memos", params); err != nil {
		return fmt.Errorf("deleting memo %s: %w", id, err)
	}
	return nil
}
