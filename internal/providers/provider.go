package providers

import (
	"context"
	"time"
)

// LLMClient is the text-generation capability used for chapter segmentation
// and translation.
type LLMClient interface {
	// Chat sends a chat completion request.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error)

	// Name returns the client identifier (e.g., "openai").
	Name() string
}

// TTSProvider is the speech-synthesis capability used per text chunk.
type TTSProvider interface {
	// Synthesize converts one chunk of text to audio.
	Synthesize(ctx context.Context, req *SpeechRequest) (*SpeechResult, error)

	// Name returns the provider identifier (e.g., "gemini").
	Name() string
}

// VoicesLister is implemented by TTS providers that can enumerate voices.
type VoicesLister interface {
	ListVoices(ctx context.Context) ([]Voice, error)
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// SystemMessage builds a system-role message.
func SystemMessage(content string) Message {
	return Message{Role: "system", Content: content}
}

// UserMessage builds a user-role message.
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// ChatRequest is a request to an LLM.
type ChatRequest struct {
	Messages []Message `json:"messages"`

	// Model selection (uses client default if empty)
	Model string `json:"model,omitempty"`

	Temperature *float64 `json:"temperature,omitempty"` // Provider default when nil
	MaxTokens   int      `json:"max_tokens,omitempty"`

	// Request tracking
	RequestID string `json:"-"`
}

// Float returns a pointer to v, for optional request fields.
func Float(v float64) *float64 {
	return &v
}

// ChatResult is the response from an LLM call.
type ChatResult struct {
	Content string `json:"content"`

	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`

	Provider      string        `json:"provider"`
	ModelUsed     string        `json:"model_used"`
	RequestID     string        `json:"request_id"`
	ExecutionTime time.Duration `json:"execution_time"`
}

// SpeechRequest is a request to synthesize one text chunk.
type SpeechRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"` // Provider default when empty
}

// SpeechResult is the raw audio returned by a TTS provider.
type SpeechResult struct {
	Audio []byte `json:"-"`

	// Format is "pcm" (signed 16-bit little-endian) or "wav".
	Format     string `json:"format"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`

	Provider      string        `json:"provider"`
	CharCount     int           `json:"char_count"`
	ExecutionTime time.Duration `json:"execution_time"`
}

// Voice describes a selectable TTS voice.
type Voice struct {
	VoiceID     string `json:"voice_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Audio payload formats.
const (
	FormatPCM = "pcm"
	FormatWAV = "wav"

	// DefaultSampleRate is the PCM rate used by Gemini and OpenAI speech.
	DefaultSampleRate = 24000
)
