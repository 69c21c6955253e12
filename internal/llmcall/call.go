// Package llmcall records LLM calls for traceability.
// Every segmentation and translation call is recorded with its prompt key,
// the resulting size, and metrics.
package llmcall

import (
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/lumina/internal/providers"
)

// Call represents a recorded LLM API call.
type Call struct {
	// Unique identifier
	ID string `json:"id"`

	// Timing
	Timestamp time.Time `json:"timestamp"`
	LatencyMs int       `json:"latency_ms"`

	// Context references
	BookID    string `json:"book_id,omitempty"`
	ChapterID string `json:"chapter_id,omitempty"`

	// Prompt traceability
	PromptKey  string `json:"prompt_key"`
	PromptHash string `json:"prompt_hash,omitempty"`

	// Model info
	Provider    string  `json:"provider"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`

	// Token usage
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`

	// Response size in characters; the text itself is not kept.
	ResponseChars int `json:"response_chars"`

	// Status
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// RecordOptions provides context for recording an LLM call.
type RecordOptions struct {
	BookID    string
	ChapterID string

	// Prompt identification (required for traceability)
	PromptKey  string
	PromptHash string

	Provider    string
	Temperature float64
	Started     time.Time
}

// FromChatResult creates a Call from a ChatResult and the error returned
// alongside it. result may be nil when the call failed.
func FromChatResult(result *providers.ChatResult, callErr error, opts RecordOptions) *Call {
	call := &Call{
		ID:          uuid.New().String(),
		Timestamp:   time.Now(),
		BookID:      opts.BookID,
		ChapterID:   opts.ChapterID,
		PromptKey:   opts.PromptKey,
		PromptHash:  opts.PromptHash,
		Provider:    opts.Provider,
		Temperature: opts.Temperature,
		Success:     callErr == nil,
	}
	if !opts.Started.IsZero() {
		call.LatencyMs = int(time.Since(opts.Started).Milliseconds())
	}
	if callErr != nil {
		call.Error = callErr.Error()
	}
	if result != nil {
		if result.RequestID != "" {
			call.ID = result.RequestID
		}
		call.Provider = result.Provider
		call.Model = result.ModelUsed
		call.InputTokens = result.PromptTokens
		call.OutputTokens = result.CompletionTokens
		call.ResponseChars = len([]rune(result.Content))
		call.LatencyMs = int(result.ExecutionTime.Milliseconds())
	}
	return call
}
