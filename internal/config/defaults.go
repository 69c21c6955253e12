package config

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrInvalidKey is returned when a config key is malformed or unknown.
var ErrInvalidKey = errors.New("invalid config key")

// envKeyReplacer maps dotted keys to environment names: defaults.voice
// becomes LUMINA_DEFAULTS_VOICE.
var envKeyReplacer = strings.NewReplacer(".", "_")

// Entry is one scalar configuration key with its default and description.
type Entry struct {
	Key         string `json:"key" yaml:"key"`
	Value       any    `json:"value" yaml:"value"`
	Description string `json:"description" yaml:"description"`
}

// EnvName returns the environment variable that overrides the entry.
func (e Entry) EnvName() string {
	return EnvPrefix + "_" + strings.ToUpper(envKeyReplacer.Replace(e.Key))
}

// DefaultEntries returns the scalar configuration keys with their defaults.
// Provider maps are configured in the file only.
func DefaultEntries() []Entry {
	d := DefaultConfig()
	return []Entry{
		// ===================
		// Pipeline Defaults
		// ===================
		{
			Key:         "defaults.llm_provider",
			Value:       d.Defaults.LLMProvider,
			Description: "LLM provider used for chapter segmentation and translation",
		},
		{
			Key:         "defaults.tts_provider",
			Value:       d.Defaults.TTSProvider,
			Description: "TTS provider used for chapter narration",
		},
		{
			Key:         "defaults.voice",
			Value:       d.Defaults.Voice,
			Description: "Voice used when a generate request names none",
		},
		{
			Key:         "defaults.target_language",
			Value:       d.Defaults.TargetLanguage,
			Description: "Target language code used when a generate request names none",
		},
		{
			Key:         "defaults.max_context_chars",
			Value:       d.Defaults.MaxContextChars,
			Description: "Book text characters sent to the model; longer text is cut",
		},
		{
			Key:         "defaults.temperature",
			Value:       d.Defaults.Temperature,
			Description: "Sampling temperature for segmentation and translation (0 is deterministic)",
		},
		{
			Key:         "defaults.max_chunk_chars",
			Value:       d.Defaults.MaxChunkChars,
			Description: "Maximum characters per speech synthesis request",
		},
		{
			Key:         "defaults.sample_rate",
			Value:       d.Defaults.SampleRate,
			Description: "PCM sample rate assumed when a provider reports none",
		},
		{
			Key:         "defaults.channels",
			Value:       d.Defaults.Channels,
			Description: "PCM channel count assumed when a provider reports none",
		},

		// ===================
		// Storage
		// ===================
		{
			Key:         "store.driver",
			Value:       d.Store.Driver,
			Description: "Book store: sqlite, badger or memory",
		},
		{
			Key:         "store.path",
			Value:       d.Store.Path,
			Description: "Book store location (default: {home}/data)",
		},

		// ===================
		// Auth
		// ===================
		{
			Key:         "auth.token_key",
			Value:       d.Auth.TokenKey,
			Description: "Hex PASETO key for session tokens (random per process when empty)",
		},
		{
			Key:         "auth.session_ttl",
			Value:       d.Auth.SessionTTL,
			Description: "Session lifetime",
		},
		{
			Key:         "auth.guest_enabled",
			Value:       d.Auth.GuestEnabled,
			Description: "Allow login as the shared guest user",
		},
		{
			Key:         "auth.identity_issuer",
			Value:       d.Auth.IdentityIssuer,
			Description: "OpenID issuer used to verify identity tokens (unverified when empty; keep the server on loopback)",
		},
		{
			Key:         "auth.identity_client_id",
			Value:       d.Auth.IdentityClientID,
			Description: "Audience identity tokens must carry",
		},

		// ===================
		// Server
		// ===================
		{
			Key:         "server.cors_origins",
			Value:       d.Server.CORSOrigins,
			Description: "Origins allowed to call the API from a browser",
		},
		{
			Key:         "server.max_upload_mb",
			Value:       d.Server.MaxUploadMB,
			Description: "Largest accepted PDF upload in megabytes",
		},
	}
}

// GetDefault returns the default entry for a config key, or nil.
func GetDefault(key string) *Entry {
	for _, entry := range DefaultEntries() {
		if entry.Key == key {
			return &entry
		}
	}
	return nil
}

// ValidateKey checks if a config key contains only allowed characters.
// Valid keys contain: letters, digits, dots, underscores, and hyphens.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
	}
	for i, r := range key {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '_' && r != '-' {
			return fmt.Errorf("%w: invalid character %q at position %d", ErrInvalidKey, r, i)
		}
	}
	if strings.HasPrefix(key, ".") || strings.HasSuffix(key, ".") || strings.Contains(key, "..") {
		return fmt.Errorf("%w: malformed key %q", ErrInvalidKey, key)
	}
	return nil
}
