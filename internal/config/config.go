package config

import (
	"fmt"

	"github.com/joho/godotenv"
)

type Config struct {
	Supabase SupabaseConfig
	Gemini   GeminiConfig
	Storage  StorageConfig
	Sync     SyncConfig
	Log      LogConfig
}

type SupabaseConfig struct {
	URL         string
	AnonKey     string
	AccessToken string
}

type GeminiConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

type StorageConfig struct {
	DataDir string
}

type SyncConfig struct {
	CooldownSeconds int
	PollSeconds     int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Gemini: GeminiConfig{
			BaseURL: "https://generativelanguage.googleapis.com",
			Model:   "gemini-2.0-flash",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Sync: SyncConfig{
			CooldownSeconds: 3,
			PollSeconds:     30,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend, a .env file
// in the working directory when present, environment variables, and the
// platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.memoflow.app) and
// secrets fall back to macOS Keychain.
// On Linux the backend is a JSON file at
// $XDG_CONFIG_HOME/memoflow/config.json and secrets fall back to a file
// under the data dir.
//
// Environment variables (MEMOFLOW_*) override backend values on all
// platforms.
func Load() (Config, error) {
	_ = godotenv.Load()
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts secret-store access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Supabase.AccessToken == "" {
		if v, err := kc.Get(secretService, accountSupabaseToken); err == nil && v != "" {
			cfg.Supabase.AccessToken = v
		}
	}
	if cfg.Gemini.APIKey == "" {
		if v, err := kc.Get(secretService, accountGeminiKey); err == nil && v != "" {
			cfg.Gemini.APIKey = v
		}
	}

	required := []struct {
		val, what, env string
		secret         bool
	}{
		{cfg.Supabase.URL, "Supabase REST URL", "MEMOFLOW_SUPABASE_URL", false},
		{cfg.Supabase.AnonKey, "Supabase anon key", "MEMOFLOW_SUPABASE_ANON_KEY", false},
		{cfg.Supabase.AccessToken, "Supabase access token", "MEMOFLOW_SUPABASE_TOKEN", true},
		{cfg.Gemini.APIKey, "Gemini API key", "MEMOFLOW_GEMINI_API_KEY", true},
	}
	for _, req := range required {
		if req.val == "" {
			hint := ""
			if req.secret {
				hint = secretHint()
			}
			return Config{}, fmt.Errorf(
				"missing required config: %s. Set it via environment variable %s%s",
				req.what, req.env, hint)
		}
	}

	return cfg, nil
}

const (
	secretService        = "memoflow"
	accountSupabaseToken = "supabase_access_token"
	accountGeminiKey     = "gemini_api_key"
)

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	return keychainGet(service, account)
}
