package providers

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Registry holds references to LLM clients and TTS providers.
// It supports config-driven instantiation, hot-reload, and provides thread-safe access.
type Registry struct {
	mu           sync.RWMutex
	llmClients   map[string]llmEntry
	ttsProviders map[string]ttsEntry
	logger       *slog.Logger
}

type llmEntry struct {
	client LLMClient
	cfg    *LLMProviderConfig // nil when registered directly
}

type ttsEntry struct {
	provider TTSProvider
	cfg      *TTSProviderConfig
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		llmClients:   make(map[string]llmEntry),
		ttsProviders: make(map[string]ttsEntry),
		logger:       slog.Default(),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// RegisterLLM registers an LLM client by name.
func (r *Registry) RegisterLLM(name string, client LLMClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llmClients[name] = llmEntry{client: client}
	if r.logger != nil {
		r.logger.Info("registered LLM client", "name", name)
	}
}

// RegisterTTS registers a TTS provider by name.
func (r *Registry) RegisterTTS(name string, provider TTSProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ttsProviders[name] = ttsEntry{provider: provider}
	if r.logger != nil {
		r.logger.Info("registered TTS provider", "name", name)
	}
}

// GetLLM returns an LLM client by name.
func (r *Registry) GetLLM(name string) (LLMClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.llmClients[name]
	if !ok {
		return nil, fmt.Errorf("LLM client not found: %s", name)
	}
	return e.client, nil
}

// GetTTS returns a TTS provider by name.
func (r *Registry) GetTTS(name string) (TTSProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.ttsProviders[name]
	if !ok {
		return nil, fmt.Errorf("TTS provider not found: %s", name)
	}
	return e.provider, nil
}

// ListLLM returns all registered LLM client names, sorted.
func (r *Registry) ListLLM() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.llmClients))
	for name := range r.llmClients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListTTS returns all registered TTS provider names, sorted.
func (r *Registry) ListTTS() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ttsProviders))
	for name := range r.ttsProviders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasLLM checks if an LLM client is registered.
func (r *Registry) HasLLM(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.llmClients[name]
	return ok
}

// HasTTS checks if a TTS provider is registered.
func (r *Registry) HasTTS(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ttsProviders[name]
	return ok
}

// RegistryConfig defines the providers to instantiate from config.
// This mirrors the config.Config structure for provider setup.
type RegistryConfig struct {
	LLMProviders map[string]LLMProviderConfig
	TTSProviders map[string]TTSProviderConfig
}

// LLMProviderConfig matches config.LLMProviderCfg with resolved API key.
type LLMProviderConfig struct {
	Type      string // "openai", "ollama", "openrouter", "gemini", "mock"
	Model     string
	BaseURL   string
	APIKey    string  // Resolved API key
	RateLimit float64 // Requests per second
	Enabled   bool
}

// TTSProviderConfig matches config.TTSProviderCfg with resolved API key.
type TTSProviderConfig struct {
	Type      string // "gemini", "openai", "kokoro", "mock"
	Model     string
	BaseURL   string
	Voice     string
	Format    string // openai only: "pcm" or "wav"
	APIKey    string
	RateLimit float64
	Enabled   bool
}

// IsLocalType reports whether a provider type runs without an API key.
func IsLocalType(typ string) bool {
	switch typ {
	case OllamaName, KokoroTTSName, MockClientName:
		return true
	}
	return false
}

// NewRegistryFromConfig creates a registry with providers based on configuration.
// Only enabled providers with valid API keys will be registered.
func NewRegistryFromConfig(cfg RegistryConfig) *Registry {
	r := NewRegistry()
	r.Reload(cfg)
	return r
}

// Reload updates the registry based on new configuration.
// Providers that are no longer configured will be unregistered.
// Providers with changed settings will be re-registered.
func (r *Registry) Reload(cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wantLLM := make(map[string]bool)
	wantTTS := make(map[string]bool)

	for name, provCfg := range cfg.LLMProviders {
		if !provCfg.Enabled || (provCfg.APIKey == "" && !IsLocalType(provCfg.Type)) {
			continue
		}
		existing, hasExisting := r.llmClients[name]
		if hasExisting && existing.cfg != nil && *existing.cfg == provCfg {
			wantLLM[name] = true
			continue
		}
		client := createLLMClient(provCfg)
		if client == nil {
			r.warn("unknown LLM provider type", name, provCfg.Type)
			continue
		}
		wantLLM[name] = true
		c := provCfg
		r.llmClients[name] = llmEntry{client: client, cfg: &c}
		r.logChange("LLM client", name, provCfg.Type, hasExisting)
	}

	for name, provCfg := range cfg.TTSProviders {
		if !provCfg.Enabled || (provCfg.APIKey == "" && !IsLocalType(provCfg.Type)) {
			continue
		}
		existing, hasExisting := r.ttsProviders[name]
		if hasExisting && existing.cfg != nil && *existing.cfg == provCfg {
			wantTTS[name] = true
			continue
		}
		provider := createTTSProvider(provCfg)
		if provider == nil {
			r.warn("unknown TTS provider type", name, provCfg.Type)
			continue
		}
		wantTTS[name] = true
		c := provCfg
		r.ttsProviders[name] = ttsEntry{provider: provider, cfg: &c}
		r.logChange("TTS provider", name, provCfg.Type, hasExisting)
	}

	// Remove providers that are no longer configured
	for name := range r.llmClients {
		if !wantLLM[name] {
			delete(r.llmClients, name)
			if r.logger != nil {
				r.logger.Info("unregistered LLM client", "name", name)
			}
		}
	}
	for name := range r.ttsProviders {
		if !wantTTS[name] {
			delete(r.ttsProviders, name)
			if r.logger != nil {
				r.logger.Info("unregistered TTS provider", "name", name)
			}
		}
	}
}

func (r *Registry) logChange(kind, name, typ string, updated bool) {
	if r.logger == nil {
		return
	}
	if updated {
		r.logger.Info("updated "+kind, "name", name, "type", typ)
	} else {
		r.logger.Info("registered "+kind, "name", name, "type", typ)
	}
}

func (r *Registry) warn(msg, name, typ string) {
	if r.logger != nil {
		r.logger.Warn(msg, "name", name, "type", typ)
	}
}

// createLLMClient creates an LLM client based on provider type.
func createLLMClient(cfg LLMProviderConfig) LLMClient {
	switch cfg.Type {
	case OpenAIChatName:
		return NewOpenAIChatClient(OpenAIChatConfig{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			BaseURL:   cfg.BaseURL,
			RateLimit: cfg.RateLimit,
		})
	case OllamaName:
		return NewOllamaClient(OpenAIChatConfig{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			BaseURL:   cfg.BaseURL,
			RateLimit: cfg.RateLimit,
		})
	case OpenRouterName:
		return NewOpenRouterClient(OpenRouterConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			RateLimit:    cfg.RateLimit,
		})
	case GeminiName:
		return NewGeminiClient(GeminiConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			RateLimit: cfg.RateLimit,
		})
	case MockClientName:
		return NewMockClient()
	default:
		return nil
	}
}

// createTTSProvider creates a TTS provider based on provider type.
func createTTSProvider(cfg TTSProviderConfig) TTSProvider {
	switch cfg.Type {
	case GeminiName:
		return NewGeminiTTSClient(GeminiConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			Voice:     cfg.Voice,
			RateLimit: cfg.RateLimit,
		})
	case OpenAITTSName:
		return NewOpenAITTSClient(OpenAITTSConfig{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			Voice:     cfg.Voice,
			Format:    cfg.Format,
			BaseURL:   cfg.BaseURL,
			RateLimit: cfg.RateLimit,
		})
	case KokoroTTSName:
		return NewKokoroTTSClient(OpenAITTSConfig{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			Voice:     cfg.Voice,
			BaseURL:   cfg.BaseURL,
			RateLimit: cfg.RateLimit,
		})
	case MockClientName:
		return NewMockTTS()
	default:
		return nil
	}
}
