// Package chapters identifies the chapters of a book and translates their
// text with a language model.
package chapters

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jackzampolin/lumina/internal/llmcall"
	"github.com/jackzampolin/lumina/internal/prompts"
	"github.com/jackzampolin/lumina/internal/prompts/segment"
	"github.com/jackzampolin/lumina/internal/providers"
	"github.com/jackzampolin/lumina/internal/types"
)

// DefaultTemperature is used for segmentation and translation calls.
const DefaultTemperature = 0.2

// Config configures a Segmenter or Translator.
type Config struct {
	LLM             providers.LLMClient
	Model           string  // Client default when empty
	MaxContextChars int      // Default: DefaultMaxContextChars
	Temperature     *float64 // Default: DefaultTemperature; zero is honored
	Recorder        *llmcall.Recorder
	Logger          *slog.Logger
}

func (c *Config) applyDefaults() {
	if c.MaxContextChars <= 0 {
		c.MaxContextChars = DefaultMaxContextChars
	}
	if c.Temperature == nil {
		t := DefaultTemperature
		c.Temperature = &t
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Segmenter maps a book's text to its ordered chapter list.
type Segmenter struct {
	params
	cfg    Config
	schema *jsonschema.Schema
}

// NewSegmenter creates a segmenter backed by cfg.LLM.
func NewSegmenter(cfg Config) (*Segmenter, error) {
	if cfg.LLM == nil {
		return nil, fmt.Errorf("segmenter requires an LLM client")
	}
	cfg.applyDefaults()
	schema, err := providers.CompileSchema("segment.json", []byte(segment.Schema))
	if err != nil {
		return nil, err
	}
	s := &Segmenter{cfg: cfg, schema: schema}
	s.init(cfg)
	return s, nil
}

// Identify returns the chapters of fullText in reading order, each idle at 0%.
// It never returns an empty list without an error.
func (s *Segmenter) Identify(ctx context.Context, fullText string) ([]types.Chapter, error) {
	maxChars, temperature := s.current()
	text := truncate(fullText, maxChars)
	if strings.TrimSpace(text) == "" {
		return nil, &SegmentationError{Err: fmt.Errorf("document has no extractable text")}
	}

	userPrompt := segment.BuildUserPrompt(text)
	started := time.Now()
	result, err := s.cfg.LLM.Chat(ctx, &providers.ChatRequest{
		Messages: []providers.Message{
			providers.SystemMessage(segment.SystemPrompt),
			providers.UserMessage(userPrompt),
		},
		Model:       s.cfg.Model,
		Temperature: &temperature,
	})
	s.cfg.Recorder.Record(result, err, llmcall.RecordOptions{
		PromptKey:   segment.PromptKey,
		PromptHash:  prompts.HashText(segment.SystemPrompt),
		Provider:    s.cfg.LLM.Name(),
		Temperature: temperature,
		Started:     started,
	})
	if err != nil {
		return nil, &SegmentationError{Err: err}
	}

	chapters, err := s.parse(result.Content)
	if err != nil {
		s.cfg.Logger.Warn("unparsable segmentation output",
			"provider", result.Provider,
			"response_chars", len(result.Content),
			"error", err)
		return nil, &SegmentationError{Err: err}
	}

	s.cfg.Logger.Info("identified chapters", "count", len(chapters), "provider", result.Provider)
	return chapters, nil
}

func (s *Segmenter) parse(content string) ([]types.Chapter, error) {
	cleaned := providers.StripCodeFences(content)
	if cleaned == "" {
		return nil, fmt.Errorf("empty response")
	}
	raw, err := providers.ParseStructuredJSON(cleaned)
	if err != nil {
		return nil, err
	}
	if err := providers.ValidateJSON(s.schema, raw); err != nil {
		return nil, err
	}

	var entries []segment.Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode chapter list: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrNoChapters
	}

	chapters := make([]types.Chapter, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		id := strings.TrimSpace(e.ID)
		if id == "" || seen[id] {
			id = uniqueSlug(i+1, seen)
		}
		seen[id] = true
		chapters = append(chapters, types.Chapter{
			ID:       id,
			Title:    strings.TrimSpace(e.Title),
			Summary:  strings.TrimSpace(e.Summary),
			Status:   types.StatusIdle,
			Progress: 0,
		})
	}
	return chapters, nil
}

// uniqueSlug returns "chapter-n", bumping n until the slug is unused.
func uniqueSlug(n int, seen map[string]bool) string {
	for {
		id := fmt.Sprintf("chapter-%d", n)
		if !seen[id] {
			return id
		}
		n++
	}
}
