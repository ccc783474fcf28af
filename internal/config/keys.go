package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "supabase.url", typ: kString, env: "MEMOFLOW_SUPABASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Supabase.URL = v.(string) },
		extract: func(cfg Config) any { return cfg.Supabase.URL },
	},
	{
		key: "supabase.anon_key", typ: kString, env: "MEMOFLOW_SUPABASE_ANON_KEY",
		apply:   func(cfg *Config, v any) { cfg.Supabase.AnonKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Supabase.AnonKey },
	},
	{
		key: "supabase.access_token", typ: kString, env: "MEMOFLOW_SUPABASE_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Supabase.AccessToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Supabase.AccessToken },
	},
	{
		key: "gemini.base_url", typ: kString, env: "MEMOFLOW_GEMINI_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Gemini.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.BaseURL },
	},
	{
		key: "gemini.api_key", typ: kString, env: "MEMOFLOW_GEMINI_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Gemini.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.APIKey },
	},
	{
		key: "gemini.model", typ: kString, env: "MEMOFLOW_GEMINI_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Gemini.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.Model },
	},
	{
		key: "storage.data_dir", typ: kString, env: "MEMOFLOW_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "sync.cooldown_seconds", typ: kInt, env: "MEMOFLOW_SYNC_COOLDOWN_SECONDS",
		apply:   func(cfg *Config, v any) { cfg.Sync.CooldownSeconds = v.(int) },
		extract: func(cfg Config) any { return cfg.Sync.CooldownSeconds },
	},
	{
		key: "sync.poll_seconds", typ: kInt, env: "MEMOFLOW_SYNC_POLL_SECONDS",
		apply:   func(cfg *Config, v any) { cfg.Sync.PollSeconds = v.(int) },
		extract: func(cfg Config) any { return cfg.Sync.PollSeconds },
	},
	{
		key: "log.level", typ: kString, env: "MEMOFLOW_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
