package config

import (
	"strings"
	"testing"
	"time"
)

// mockBackend is an in-memory ConfigBackend.
type mockBackend struct {
	strings map[string]string
	ints    map[string]int
}

func newMockBackend() *mockBackend {
	return &mockBackend{strings: make(map[string]string), ints: make(map[string]int)}
}

func (m *mockBackend) GetString(key string) (string, bool, error) {
	v, ok := m.strings[key]
	return v, ok, nil
}

func (m *mockBackend) GetInt(key string) (int, bool, error) {
	v, ok := m.ints[key]
	return v, ok, nil
}

func (m *mockBackend) SetString(key, val string) error {
	m.strings[key] = val
	return nil
}

func (m *mockBackend) SetInt(key string, val int) error {
	m.ints[key] = val
	return nil
}

func (m *mockBackend) Delete(key string) error {
	delete(m.strings, key)
	delete(m.ints, key)
	return nil
}

// mockKeychain is a test double for the platform secret store.
type mockKeychain struct {
	value string
	err   error
}

func (m mockKeychain) Get(service, account string) (string, error) {
	return m.value, m.err
}

// clearEnv blanks every config env var so ambient shell state cannot leak
// into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
	t.Setenv("GOOGLE_API_KEY", "")
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	b := newMockBackend()
	b.strings["gemini.api_key"] = "test-key" // ignored, secrets never live in the backend
	t.Setenv("CTXCHAT_GEMINI_API_KEY", "env-key")

	cfg, err := loadWith(b, mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4000 {
		t.Errorf("Server.Port = %d, want 4000", cfg.Server.Port)
	}
	if cfg.Gemini.DefaultModel != "gemini-2.0-flash" {
		t.Errorf("Gemini.DefaultModel = %q", cfg.Gemini.DefaultModel)
	}
	if cfg.Context.MaxFileBytes != 10<<20 {
		t.Errorf("Context.MaxFileBytes = %d", cfg.Context.MaxFileBytes)
	}
	if cfg.Context.MaxURLBytes != 2<<20 {
		t.Errorf("Context.MaxURLBytes = %d", cfg.Context.MaxURLBytes)
	}
	if cfg.Context.MaxDirEntries != 50 {
		t.Errorf("Context.MaxDirEntries = %d", cfg.Context.MaxDirEntries)
	}
	if !cfg.Context.InlineErrors {
		t.Error("Context.InlineErrors should default to true")
	}
	if cfg.Context.RootDir == "" {
		t.Error("Context.RootDir should have a default")
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

func TestBackendValues(t *testing.T) {
	clearEnv(t)
	b := newMockBackend()
	b.ints["server.port"] = 5000
	b.strings["gemini.default_model"] = "gemini-2.0-pro"
	b.strings["context.root_dir"] = "/srv/context"
	b.ints["context.max_dir_entries"] = 10
	b.strings["context.fetch_timeout"] = "30s"
	b.strings["context.inline_errors"] = "false"
	b.strings["storage.data_dir"] = "/srv/data"
	t.Setenv("CTXCHAT_GEMINI_API_KEY", "env-key")

	cfg, err := loadWith(b, mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if cfg.Gemini.DefaultModel != "gemini-2.0-pro" {
		t.Errorf("Gemini.DefaultModel = %q", cfg.Gemini.DefaultModel)
	}
	if cfg.Context.RootDir != "/srv/context" {
		t.Errorf("Context.RootDir = %q", cfg.Context.RootDir)
	}
	if cfg.Context.MaxDirEntries != 10 {
		t.Errorf("Context.MaxDirEntries = %d", cfg.Context.MaxDirEntries)
	}
	if cfg.Context.InlineErrors {
		t.Error("Context.InlineErrors should be false")
	}
	if cfg.Storage.DataDir != "/srv/data" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Context.Timeout() != 30*time.Second {
		t.Errorf("Timeout = %v", cfg.Context.Timeout())
	}
}

// TestEnvOverride verifies environment variables beat backend values.
func TestEnvOverride(t *testing.T) {
	clearEnv(t)
	b := newMockBackend()
	b.ints["server.port"] = 5000
	t.Setenv("CTXCHAT_SERVER_PORT", "6000")
	t.Setenv("CTXCHAT_GEMINI_API_KEY", "env-key")

	cfg, err := loadWith(b, mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 6000 {
		t.Errorf("Server.Port = %d, want env override 6000", cfg.Server.Port)
	}
	if cfg.Gemini.APIKey != "env-key" {
		t.Errorf("Gemini.APIKey = %q", cfg.Gemini.APIKey)
	}
}

// TestBadEnvValuesKeepDefaults verifies unparseable numeric and bool env
// values fall back to defaults instead of failing the load.
func TestBadEnvValuesKeepDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("CTXCHAT_SERVER_PORT", "not-a-number")
	t.Setenv("CTXCHAT_CONTEXT_INLINE_ERRORS", "maybe")
	t.Setenv("CTXCHAT_GEMINI_API_KEY", "env-key")

	cfg, err := loadWith(newMockBackend(), mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4000 {
		t.Errorf("Server.Port = %d, want default 4000", cfg.Server.Port)
	}
	if !cfg.Context.InlineErrors {
		t.Error("Context.InlineErrors should keep default true")
	}
}

// TestKeychainFallback verifies the secret store is consulted when no API key
// is set anywhere else.
func TestKeychainFallback(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(newMockBackend(), mockKeychain{value: "keychain-secret"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Gemini.APIKey != "keychain-secret" {
		t.Errorf("Gemini.APIKey = %q, want %q", cfg.Gemini.APIKey, "keychain-secret")
	}
}

func TestGoogleAPIKeyFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOOGLE_API_KEY", "google-key")

	cfg, err := loadWith(newMockBackend(), mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Gemini.APIKey != "google-key" {
		t.Errorf("Gemini.APIKey = %q", cfg.Gemini.APIKey)
	}
}

// TestMissingAPIKey verifies a clear error when the key is missing everywhere.
func TestMissingAPIKey(t *testing.T) {
	clearEnv(t)

	_, err := loadWith(newMockBackend(), mockKeychain{})
	if err == nil {
		t.Fatal("expected error for missing API key, got nil")
	}
	if !strings.Contains(err.Error(), "missing required config") {
		t.Errorf("error = %q", err.Error())
	}
	if !strings.Contains(err.Error(), "CTXCHAT_GEMINI_API_KEY") {
		t.Errorf("error = %q, want the env var named", err.Error())
	}
}

func TestTimeout_BadValue(t *testing.T) {
	c := ContextConfig{FetchTimeout: "soon"}
	if c.Timeout() != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s fallback", c.Timeout())
	}
	c = ContextConfig{FetchTimeout: "-3s"}
	if c.Timeout() != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s fallback for non-positive", c.Timeout())
	}
}
