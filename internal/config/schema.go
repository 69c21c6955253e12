package config

import "time"

// Config holds lumina configuration.
// Stored at: {home}/config.yaml
type Config struct {
	LLMProviders map[string]LLMProviderCfg `mapstructure:"llm_providers" yaml:"llm_providers"`
	TTSProviders map[string]TTSProviderCfg `mapstructure:"tts_providers" yaml:"tts_providers"`
	Defaults     DefaultsCfg               `mapstructure:"defaults" yaml:"defaults"`
	Store        StoreCfg                  `mapstructure:"store" yaml:"store"`
	Auth         AuthCfg                   `mapstructure:"auth" yaml:"auth"`
	Server       ServerCfg                 `mapstructure:"server" yaml:"server"`
}

// LLMProviderCfg configures a text-generation provider.
type LLMProviderCfg struct {
	Type      string  `mapstructure:"type" yaml:"type"`                       // "openai", "ollama", "openrouter", "gemini", "mock"
	Model     string  `mapstructure:"model" yaml:"model"`                     // Model name
	BaseURL   string  `mapstructure:"base_url" yaml:"base_url,omitempty"`     // Override endpoint (Ollama, Z.AI, proxies)
	APIKey    string  `mapstructure:"api_key" yaml:"api_key,omitempty"`       // API key (supports ${ENV_VAR} syntax)
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit,omitempty"` // Requests per second
	Enabled   bool    `mapstructure:"enabled" yaml:"enabled"`
}

// TTSProviderCfg configures a speech provider.
type TTSProviderCfg struct {
	Type      string  `mapstructure:"type" yaml:"type"`                       // "gemini", "openai", "kokoro", "mock"
	Model     string  `mapstructure:"model" yaml:"model"`                     // Model name
	BaseURL   string  `mapstructure:"base_url" yaml:"base_url,omitempty"`     // Override endpoint (Kokoro)
	Voice     string  `mapstructure:"voice" yaml:"voice,omitempty"`           // Provider default voice
	Format    string  `mapstructure:"format" yaml:"format,omitempty"`         // "pcm" or "wav" (openai only)
	APIKey    string  `mapstructure:"api_key" yaml:"api_key,omitempty"`       // API key (supports ${ENV_VAR} syntax)
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit,omitempty"` // Requests per second
	Enabled   bool    `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultsCfg selects providers and pipeline parameters.
type DefaultsCfg struct {
	LLMProvider     string `mapstructure:"llm_provider" yaml:"llm_provider"`           // Provider for segmentation and translation
	TTSProvider     string `mapstructure:"tts_provider" yaml:"tts_provider"`           // Provider for speech
	Voice           string `mapstructure:"voice" yaml:"voice"`                         // Voice when a request names none
	TargetLanguage  string `mapstructure:"target_language" yaml:"target_language"`     // Language code when a request names none
	MaxContextChars int     `mapstructure:"max_context_chars" yaml:"max_context_chars"` // Book text sent to the model
	Temperature     float64 `mapstructure:"temperature" yaml:"temperature"`             // Sampling temperature for model calls
	MaxChunkChars   int     `mapstructure:"max_chunk_chars" yaml:"max_chunk_chars"`     // Characters per speech request
	SampleRate      int     `mapstructure:"sample_rate" yaml:"sample_rate"`             // PCM rate when a provider reports none
	Channels        int     `mapstructure:"channels" yaml:"channels"`
}

// StoreCfg selects the book store.
type StoreCfg struct {
	Driver string `mapstructure:"driver" yaml:"driver"` // "sqlite", "badger" or "memory"
	Path   string `mapstructure:"path" yaml:"path"`     // Defaults to {home}/data
}

// AuthCfg configures login sessions.
type AuthCfg struct {
	TokenKey     string        `mapstructure:"token_key" yaml:"token_key"`         // 64 hex chars (supports ${ENV_VAR} syntax)
	SessionTTL   time.Duration `mapstructure:"session_ttl" yaml:"session_ttl"`     // e.g. "24h"
	GuestEnabled bool          `mapstructure:"guest_enabled" yaml:"guest_enabled"` // Allow the fixed guest identity

	// IdentityIssuer is the OpenID issuer whose keys sign identity tokens.
	// Tokens are accepted unverified when empty.
	IdentityIssuer   string `mapstructure:"identity_issuer" yaml:"identity_issuer"`
	IdentityClientID string `mapstructure:"identity_client_id" yaml:"identity_client_id"` // Expected token audience
}

// ServerCfg configures the HTTP server.
type ServerCfg struct {
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
	MaxUploadMB int      `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"gemini": {
				Type:    "gemini",
				Model:   "gemini-2.5-flash",
				APIKey:  "${GEMINI_API_KEY}",
				Enabled: true,
			},
			"openrouter": {
				Type:    "openrouter",
				Model:   "google/gemini-2.5-flash",
				APIKey:  "${OPENROUTER_API_KEY}",
				Enabled: true,
			},
			"openai": {
				Type:    "openai",
				Model:   "gpt-4o-mini",
				APIKey:  "${OPENAI_API_KEY}",
				Enabled: true,
			},
			"ollama": {
				Type:    "ollama",
				Model:   "llama3.1",
				BaseURL: "http://localhost:11434/v1",
				Enabled: false,
			},
		},
		TTSProviders: map[string]TTSProviderCfg{
			"gemini": {
				Type:    "gemini",
				Model:   "gemini-2.5-flash-preview-tts",
				Voice:   "Zephyr",
				APIKey:  "${GEMINI_API_KEY}",
				Enabled: true,
			},
			"openai": {
				Type:    "openai",
				Model:   "gpt-4o-mini-tts",
				Voice:   "onyx",
				Format:  "pcm",
				APIKey:  "${OPENAI_API_KEY}",
				Enabled: true,
			},
			"kokoro": {
				Type:    "kokoro",
				Model:   "kokoro",
				Voice:   "af_heart",
				BaseURL: "http://localhost:8880/v1",
				Enabled: false,
			},
		},
		Defaults: DefaultsCfg{
			LLMProvider:     "gemini",
			TTSProvider:     "gemini",
			Voice:           "Zephyr",
			TargetLanguage:  "es",
			MaxContextChars: 80000,
			Temperature:     0.2,
			MaxChunkChars:   5000,
			SampleRate:      24000,
			Channels:        1,
		},
		Store: StoreCfg{
			Driver: "sqlite",
		},
		Auth: AuthCfg{
			TokenKey:     "${LUMINA_TOKEN_KEY}",
			SessionTTL:   24 * time.Hour,
			GuestEnabled: true,
		},
		Server: ServerCfg{
			CORSOrigins: []string{"http://localhost:5173"},
			MaxUploadMB: 100,
		},
	}
}

// GetLLMProvider returns an LLM provider config by name.
func (c *Config) GetLLMProvider(name string) (LLMProviderCfg, bool) {
	cfg, ok := c.LLMProviders[name]
	return cfg, ok
}

// GetTTSProvider returns a TTS provider config by name.
func (c *Config) GetTTSProvider(name string) (TTSProviderCfg, bool) {
	cfg, ok := c.TTSProviders[name]
	return cfg, ok
}

// EnabledLLMProviders returns all enabled LLM providers.
func (c *Config) EnabledLLMProviders() map[string]LLMProviderCfg {
	result := make(map[string]LLMProviderCfg)
	for name, cfg := range c.LLMProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}

// EnabledTTSProviders returns all enabled TTS providers.
func (c *Config) EnabledTTSProviders() map[string]TTSProviderCfg {
	result := make(map[string]TTSProviderCfg)
	for name, cfg := range c.TTSProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}
