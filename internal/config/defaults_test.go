package config

import (
	"errors"
	"testing"
)

func TestDefaultEntries(t *testing.T) {
	entries := DefaultEntries()
	if len(entries) == 0 {
		t.Fatal("expected default entries")
	}

	seen := make(map[string]bool)
	for _, e := range entries {
		if err := ValidateKey(e.Key); err != nil {
			t.Errorf("entry %q has invalid key: %v", e.Key, err)
		}
		if seen[e.Key] {
			t.Errorf("duplicate key %q", e.Key)
		}
		seen[e.Key] = true
		if e.Description == "" {
			t.Errorf("entry %q has no description", e.Key)
		}
	}
}

func TestGetDefault(t *testing.T) {
	e := GetDefault("defaults.max_chunk_chars")
	if e == nil {
		t.Fatal("expected entry for defaults.max_chunk_chars")
	}
	if e.Value != 5000 {
		t.Errorf("value = %v", e.Value)
	}
	if e.EnvName() != "LUMINA_DEFAULTS_MAX_CHUNK_CHARS" {
		t.Errorf("env name = %q", e.EnvName())
	}
	if GetDefault("does.not.exist") != nil {
		t.Error("expected nil for unknown key")
	}
}

func TestValidateKey(t *testing.T) {
	valid := []string{"defaults.voice", "tts_providers.kokoro.base_url", "a-b"}
	for _, k := range valid {
		if err := ValidateKey(k); err != nil {
			t.Errorf("ValidateKey(%q) = %v", k, err)
		}
	}

	invalid := []string{"", ".voice", "voice.", "a..b", "has space", "semi;colon"}
	for _, k := range invalid {
		if err := ValidateKey(k); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("ValidateKey(%q) = %v, want ErrInvalidKey", k, err)
		}
	}
}
