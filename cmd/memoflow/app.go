package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"memoflow/internal/auth"
	"memoflow/internal/chat"
	"memoflow/internal/config"
	"memoflow/internal/genai"
	"memoflow/internal/memos"
	"memoflow/internal/storage"
	"memoflow/internal/supabase"
	"memoflow/internal/tombstone"
)

// app holds the wired-up services behind every command.
type app struct {
	cfg    config.Config
	store  *storage.Store
	userID string

	chat       *chat.Service
	memoSvc    *memos.Service
	memoStore  *supabase.MemoStore
	reconciler *memos.Reconciler
}

// newApp loads config and builds the full service graph. The caller owns
// shutdown via close.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	userID, err := auth.UserID(cfg.Supabase.AccessToken)
	if err != nil {
		slog.Warn("could not resolve user identity from access token", "error", err)
		userID = ""
	}

	client := supabase.New(cfg.Supabase.URL, cfg.Supabase.AnonKey, cfg.Supabase.AccessToken)
	chatStore := supabase.NewChatStore(client, userID)
	memoStore := supabase.NewMemoStore(client, userID)
	tombs := tombstone.Load(store)

	gen := genai.New(cfg.Gemini.BaseURL, cfg.Gemini.APIKey, cfg.Gemini.Model)

	cooldown := time.Duration(cfg.Sync.CooldownSeconds) * time.Second
	return &app{
		cfg:        cfg,
		store:      store,
		userID:     userID,
		chat:       chat.NewService(chatStore, gen, memoStore, store, userID),
		memoSvc:    memos.NewService(memoStore, chatStore, tombs),
		memoStore:  memoStore,
		reconciler: memos.NewReconciler(chatStore, memoStore, tombs, store, userID, cfg.Supabase.AccessToken, cooldown),
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		slog.Warn("closing storage", "error", err)
	}
}
