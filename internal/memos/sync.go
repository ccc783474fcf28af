// Package memos holds the memo view service: CRUD orchestration over the
// remote store and the chat-to-memo sync reconciler.
package memos

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"memoflow/internal/auth"
	"memoflow/internal/memo"
	"memoflow/internal/storage"
	"memoflow/internal/supabase"
	"memoflow/internal/tombstone"
)

// defaultCooldown absorbs duplicate sync triggers from the embedding UI's
// re-render behavior. It is a debounce, not a correctness mechanism.
const defaultCooldown = 3 * time.Second

// guardTokenLen is how much of the access token participates in the guard
// key, so a token refresh for the same user starts a fresh guard scope.
const guardTokenLen = 8

// sharedGuard serializes reconciliation passes per user session across all
// Reconcilers in the process.
var sharedGuard = NewGuard()

// KV is the slice of local persistence the reconciler needs.
type KV interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// SkipReason says why a sync trigger did not run a pass.
type SkipReason int

const (
	SkipNone     SkipReason = iota
	SkipNoUser              // no user identity
	SkipInFlight            // another pass for this session is running
	SkipCooldown            // a pass completed moments ago
)

// Result reports one sync trigger's outcome. Memos carries the freshly
// fetched remote list (newest first) when a pass ran to completion.
type Result struct {
	Skipped  SkipReason
	Inserted int
	Memos    []memo.Memo
}

// Ran reports whether a full pass executed.
func (r Result) Ran() bool { return r.Skipped == SkipNone }

// Reconciler merges memos extracted from the chat transcript into the
// remote memos store: fetch, parse, dedupe, drop tombstoned keys, insert
// the net-new remainder, re-fetch.
type Reconciler struct {
	chat     *supabase.ChatStore
	memos    *supabase.MemoStore
	tombs    *tombstone.Store
	kv       KV
	guard    *Guard
	guardKey string
	userID   string
	cooldown time.Duration
	now      func() time.Time
}

// NewReconciler creates a Reconciler for one user session. cooldown <= 0
// selects the default 3s window.
func NewReconciler(chat *supabase.ChatStore, memoStore *supabase.MemoStore, tombs *tombstone.Store, kv KV, userID, token string, cooldown time.Duration) *Reconciler {
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	return &Reconciler{
		chat:     chat,
		memos:    memoStore,
		tombs:    tombs,
		kv:       kv,
		guard:    sharedGuard,
		guardKey: userID + ":" + auth.GuardSuffix(token, guardTokenLen),
		userID:   userID,
		cooldown: cooldown,
		now:      time.Now,
	}
}

// Sync runs one reconciliation pass. Overlapping and rapid-fire triggers
// are no-ops reported through Result.Skipped. Any fetch or insert failure
// aborts the remainder of the pass; the guard is always released and the
// next trigger starts clean.
func (r *Reconciler) Sync(ctx context.Context) (Result, error) {
	if r.userID == "" {
		slog.Warn("memo sync skipped: no user identity")
		return Result{Skipped: SkipNoUser}, nil
	}

	if !r.guard.TryAcquire(r.guardKey) {
		slog.Debug("memo sync skipped: pass already in flight", "user_id", r.userID)
		return Result{Skipped: SkipInFlight}, nil
	}
	defer r.guard.Release(r.guardKey)

	now := r.now()
	if r.withinCooldown(now) {
		slog.Debug("memo sync skipped: cool-down", "user_id", r.userID)
		return Result{Skipped: SkipCooldown}, nil
	}
	// Stamp before the pass so a failing pass doesn't retrigger in a loop.
	if err := r.kv.Set(storage.KeyLastSyncStamp, strconv.FormatInt(now.UnixMilli(), 10)); err != nil {
		slog.Warn("failed to stamp sync cool-down", "error", err)
	}

	// Chat history and the existing memo key rows are independent reads.
	var msgs []supabase.ChatMessage
	var existing []memo.Memo
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		msgs, err = r.chat.ListAIMessages(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		existing, err = r.memos.ListKeyRows(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Result{}, fmt.Errorf("fetching sync inputs: %w", err)
	}

	candidates := extractCandidates(msgs)
	candidates = memo.Dedupe(candidates)

	kept := candidates[:0]
	for _, c := range candidates {
		if r.tombs.Contains(c.Key()) {
			continue
		}
		kept = append(kept, c)
	}

	keys := memo.KeySet(existing)
	inserted := 0
	for _, c := range kept {
		k := c.Key()
		if _, dup := keys[k]; dup {
			continue
		}
		_, err := r.memos.Create(ctx, memo.Memo{
			Title:         c.Content,
			Content:       c.Content,
			DueDate:       c.DueDate,
			Priority:      c.Priority,
			Category:      c.Category,
			CreatedAt:     c.CreatedAt,
			Source:        "chat_message",
			ChatMessageID: c.ChatMessageID,
		})
		if err != nil {
			return Result{}, fmt.Errorf("inserting memo %q: %w", c.Content, err)
		}
		// Cover the key immediately so a later duplicate in this batch
		// can't double-insert without a round trip.
		keys[k] = struct{}{}
		inserted++
	}

	list, err := r.memos.List(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("refreshing memo list: %w", err)
	}

	slog.Debug("memo sync complete",
		"user_id", r.userID,
		"candidates", len(kept),
		"inserted", inserted,
	)
	return Result{Inserted: inserted, Memos: list}, nil
}

func (r *Reconciler) withinCooldown(now time.Time) bool {
	raw, err := r.kv.Get(storage.KeyLastSyncStamp)
	if err != nil {
		return false
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false
	}
	return now.Sub(time.UnixMilli(ms)) < r.cooldown
}

// extractCandidates parses each AI message into a memo candidate. Messages
// arrive oldest-first, which fixes the first-wins order downstream.
func extractCandidates(msgs []supabase.ChatMessage) []memo.Candidate {
	var out []memo.Candidate
	for _, m := range msgs {
		d, ok := memo.ExtractDraft(m.Content)
		if !ok {
			continue
		}
		out = append(out, memo.Candidate{
			Draft:         d,
			CreatedAt:     m.CreatedAt,
			ChatMessageID: m.ID,
		})
	}
	return out
}
