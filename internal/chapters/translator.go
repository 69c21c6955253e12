package chapters

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackzampolin/lumina/internal/llmcall"
	"github.com/jackzampolin/lumina/internal/prompts"
	"github.com/jackzampolin/lumina/internal/prompts/translate"
	"github.com/jackzampolin/lumina/internal/providers"
)

// Translator produces the full text of one chapter in a target language.
type Translator struct {
	params
	cfg Config
}

// NewTranslator creates a translator backed by cfg.LLM.
func NewTranslator(cfg Config) (*Translator, error) {
	if cfg.LLM == nil {
		return nil, fmt.Errorf("translator requires an LLM client")
	}
	cfg.applyDefaults()
	t := &Translator{cfg: cfg}
	t.init(cfg)
	return t, nil
}

// Translate locates the section titled title in fullText and returns it
// translated into language, a code such as "es" or an English language name.
func (t *Translator) Translate(ctx context.Context, fullText, title, language string) (string, error) {
	maxChars, temperature := t.current()
	text := truncate(fullText, maxChars)
	langName := LanguageName(language)

	started := time.Now()
	result, err := t.cfg.LLM.Chat(ctx, &providers.ChatRequest{
		Messages: []providers.Message{
			providers.SystemMessage(translate.SystemPrompt),
			providers.UserMessage(translate.BuildUserPrompt(title, langName, text)),
		},
		Model:       t.cfg.Model,
		Temperature: &temperature,
	})
	t.cfg.Recorder.Record(result, err, llmcall.RecordOptions{
		PromptKey:   translate.PromptKey,
		PromptHash:  prompts.HashText(translate.SystemPrompt),
		Provider:    t.cfg.LLM.Name(),
		Temperature: temperature,
		Started:     started,
	})
	if err != nil {
		return "", &TranslationError{Title: title, Err: err}
	}

	translated := strings.TrimSpace(result.Content)
	if translated == "" {
		return "", &TranslationError{Title: title, Err: ErrEmptyTranslation}
	}

	t.cfg.Logger.Debug("translated chapter",
		"title", title,
		"language", langName,
		"chars", len([]rune(translated)))
	return translated, nil
}
