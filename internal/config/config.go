// Package config loads service configuration from the platform-native
// backend, environment variables, and the platform secret store.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Config struct {
	Server  ServerConfig
	Gemini  GeminiConfig
	Context ContextConfig
	Storage StorageConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port int
}

type GeminiConfig struct {
	APIKey       string
	DefaultModel string
}

type ContextConfig struct {
	// RootDir is the only directory local references may resolve into.
	RootDir       string
	MaxFileBytes  int
	MaxURLBytes   int
	MaxDirEntries int
	// FetchTimeout is a duration string, e.g. "10s".
	FetchTimeout string
	// InlineErrors reports resolution failures to the client as stream
	// events instead of only logging them.
	InlineErrors bool
}

// Timeout parses FetchTimeout, falling back to 10s on a bad value.
func (c ContextConfig) Timeout() time.Duration {
	d, err := time.ParseDuration(c.FetchTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	dataDir := defaultDataDir()
	return Config{
		Server: ServerConfig{
			Port: 4000,
		},
		Gemini: GeminiConfig{
			DefaultModel: "gemini-2.0-flash",
		},
		Context: ContextConfig{
			RootDir:       defaultContextDir(dataDir),
			MaxFileBytes:  10 << 20,
			MaxURLBytes:   2 << 20,
			MaxDirEntries: 50,
			FetchTimeout:  "10s",
			InlineErrors:  true,
		},
		Storage: StorageConfig{
			DataDir: dataDir,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func defaultContextDir(dataDir string) string {
	return filepath.Join(dataDir, "allowed_context")
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.ctxchat.app) and secrets
// fall back to macOS Keychain.
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/ctxchat/config.json
// and secrets fall back to a secrets file under the data directory.
//
// Environment variables (CTXCHAT_*) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts secret store access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	// Try platform secret store for the API key if still empty.
	if cfg.Gemini.APIKey == "" {
		if key, err := kc.Get("ctxchat", "gemini_api_key"); err == nil && key != "" {
			cfg.Gemini.APIKey = key
		}
	}

	// GOOGLE_API_KEY is the conventional name for this credential.
	if cfg.Gemini.APIKey == "" {
		cfg.Gemini.APIKey = os.Getenv("GOOGLE_API_KEY")
	}

	if cfg.Gemini.APIKey == "" {
		msg := "missing required config: Gemini API key. " +
			"Set it via environment variable CTXCHAT_GEMINI_API_KEY or GOOGLE_API_KEY" +
			apiKeyHint()
		return Config{}, fmt.Errorf("%s", msg)
	}

	return cfg, nil
}

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainExec(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
