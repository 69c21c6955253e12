package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"gopkg.in/yaml.v2"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configFile, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return configFile
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Defaults.LLMProvider != "gemini" || cfg.Defaults.TTSProvider != "gemini" {
		t.Errorf("unexpected default providers: %+v", cfg.Defaults)
	}
	if cfg.Defaults.MaxChunkChars != 5000 || cfg.Defaults.MaxContextChars != 80000 {
		t.Errorf("unexpected pipeline limits: %+v", cfg.Defaults)
	}
	if cfg.LLMProviders["gemini"].APIKey != "${GEMINI_API_KEY}" {
		t.Error("expected gemini API key placeholder")
	}
	if _, ok := cfg.GetTTSProvider(cfg.Defaults.TTSProvider); !ok {
		t.Error("default TTS provider is not configured")
	}
	if _, ok := cfg.GetLLMProvider(cfg.Defaults.LLMProvider); !ok {
		t.Error("default LLM provider is not configured")
	}
}

func TestEnabledProviders(t *testing.T) {
	cfg := DefaultConfig()
	if _, ok := cfg.EnabledLLMProviders()["ollama"]; ok {
		t.Error("ollama should be disabled by default")
	}
	if _, ok := cfg.EnabledTTSProviders()["kokoro"]; ok {
		t.Error("kokoro should be disabled by default")
	}
	if _, ok := cfg.EnabledTTSProviders()["gemini"]; !ok {
		t.Error("gemini should be enabled by default")
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		t.Setenv("TEST_API_KEY", "secret123")

		result := ResolveEnvVars("${TEST_API_KEY}")
		if result != "secret123" {
			t.Errorf("expected secret123, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("literal-value")
		if result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})
}

func TestToProviderRegistryConfig(t *testing.T) {
	t.Setenv("TEST_GEMINI_KEY", "gm-key-123")

	cfg := &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"gemini": {Type: "gemini", Model: "gemini-2.5-flash", APIKey: "${TEST_GEMINI_KEY}", Enabled: true},
		},
		TTSProviders: map[string]TTSProviderCfg{
			"kokoro": {Type: "kokoro", BaseURL: "http://localhost:8880/v1", Voice: "af_heart", Enabled: true},
		},
	}

	reg := cfg.ToProviderRegistryConfig()
	if got := reg.LLMProviders["gemini"].APIKey; got != "gm-key-123" {
		t.Errorf("expected resolved key, got %q", got)
	}
	kokoro := reg.TTSProviders["kokoro"]
	if kokoro.BaseURL != "http://localhost:8880/v1" || kokoro.Voice != "af_heart" || !kokoro.Enabled {
		t.Errorf("unexpected kokoro config: %+v", kokoro)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file", func(t *testing.T) {
		configFile := writeConfig(t, `
defaults:
  voice: Puck
  target_language: fr
store:
  driver: badger
auth:
  session_ttl: 2h
tts_providers:
  mock:
    type: mock
    enabled: true
`)

		mgr, err := NewManager(configFile, "")
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		cfg := mgr.Get()
		if cfg.Defaults.Voice != "Puck" || cfg.Defaults.TargetLanguage != "fr" {
			t.Errorf("defaults not loaded: %+v", cfg.Defaults)
		}
		if cfg.Defaults.MaxChunkChars != 5000 {
			t.Errorf("unset keys should keep defaults, got %d", cfg.Defaults.MaxChunkChars)
		}
		if cfg.Store.Driver != "badger" {
			t.Errorf("store driver = %q", cfg.Store.Driver)
		}
		if cfg.Auth.SessionTTL != 2*time.Hour {
			t.Errorf("session ttl = %v", cfg.Auth.SessionTTL)
		}
		if _, ok := cfg.TTSProviders["mock"]; !ok {
			t.Error("expected mock tts provider from file")
		}
		if mgr.ConfigFile() != configFile {
			t.Errorf("ConfigFile() = %q", mgr.ConfigFile())
		}
	})

	t.Run("runs on defaults without a file", func(t *testing.T) {
		t.Chdir(t.TempDir())
		mgr, err := NewManager("", t.TempDir())
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		if mgr.Get().Defaults.LLMProvider != "gemini" {
			t.Errorf("expected defaults, got %+v", mgr.Get().Defaults)
		}
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("LUMINA_DEFAULTS_VOICE", "Kore")
		configFile := writeConfig(t, "defaults:\n  voice: Puck\n")

		mgr, err := NewManager(configFile, "")
		if err != nil {
			t.Fatal(err)
		}
		if got := mgr.Get().Defaults.Voice; got != "Kore" {
			t.Errorf("voice = %q, want Kore", got)
		}
	})

	t.Run("rejects unreadable file", func(t *testing.T) {
		configFile := writeConfig(t, "defaults: [not: a map")
		if _, err := NewManager(configFile, ""); err == nil {
			t.Error("expected error for malformed yaml")
		}
	})
}

func TestManager_Value(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "defaults:\n  voice: Charon\n"), "")
	if err != nil {
		t.Fatal(err)
	}

	v, err := mgr.Value("defaults.voice")
	if err != nil || v != "Charon" {
		t.Errorf("Value() = %v, %v", v, err)
	}
	if _, err := mgr.Value("defaults.nope"); err == nil {
		t.Error("expected error for unknown key")
	}
	if _, err := mgr.Value("bad key"); err == nil {
		t.Error("expected error for invalid key")
	}
}

func TestManager_OnChange_Multiple(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "defaults:\n  voice: Puck\n"), "")
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})

	mgr.mu.RLock()
	if len(mgr.callbacks) != 3 {
		t.Errorf("expected 3 callbacks, got %d", len(mgr.callbacks))
	}
	mgr.mu.RUnlock()
}

func TestManager_Get_ThreadSafe(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "defaults:\n  voice: Puck\n"), "")
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				_ = mgr.Get().Defaults.Voice
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestManager_WatchConfig(t *testing.T) {
	configFile := writeConfig(t, "defaults:\n  voice: Puck\n")

	mgr, err := NewManager(configFile, "")
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	var callbackCount atomic.Int32
	var lastValue atomic.Value

	mgr.OnChange(func(cfg *Config) {
		callbackCount.Add(1)
		lastValue.Store(cfg.Defaults.Voice)
	})

	mgr.WatchConfig()

	// Give fsnotify time to set up the watcher
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(configFile, []byte("defaults:\n  voice: Fenrir\n"), 0o644); err != nil {
		t.Fatalf("failed to write updated config file: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if v, _ := lastValue.Load().(string); v == "Fenrir" {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if callbackCount.Load() == 0 {
		t.Fatal("callback was not invoked after config file change")
	}
	if got := mgr.Get().Defaults.Voice; got != "Fenrir" {
		t.Errorf("config not updated: expected Fenrir, got %s", got)
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("written config is not valid yaml: %v", err)
	}
	if cfg.Defaults.Voice != "Zephyr" {
		t.Errorf("voice = %q", cfg.Defaults.Voice)
	}

	mgr, err := NewManager(path, "")
	if err != nil {
		t.Fatal(err)
	}
	if mgr.Get().Auth.SessionTTL != 24*time.Hour {
		t.Errorf("session ttl = %v", mgr.Get().Auth.SessionTTL)
	}
}
