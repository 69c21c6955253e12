package llmcall

import (
	"log/slog"
	"sync"

	"github.com/jackzampolin/lumina/internal/providers"
)

// Recorder logs every LLM call and keeps the most recent ones in memory.
// A nil *Recorder discards calls.
type Recorder struct {
	logger *slog.Logger

	mu     sync.Mutex
	recent []*Call
	limit  int
}

// NewRecorder creates a recorder that keeps up to limit recent calls.
func NewRecorder(logger *slog.Logger, limit int) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	if limit <= 0 {
		limit = 100
	}
	return &Recorder{logger: logger, limit: limit}
}

// Record captures one call.
func (r *Recorder) Record(result *providers.ChatResult, callErr error, opts RecordOptions) {
	if r == nil {
		return
	}
	r.RecordCall(FromChatResult(result, callErr, opts))
}

// RecordCall captures an already-constructed Call.
func (r *Recorder) RecordCall(call *Call) {
	if r == nil || call == nil {
		return
	}

	attrs := []any{
		"prompt_key", call.PromptKey,
		"provider", call.Provider,
		"model", call.Model,
		"latency_ms", call.LatencyMs,
		"input_tokens", call.InputTokens,
		"output_tokens", call.OutputTokens,
		"response_chars", call.ResponseChars,
	}
	if call.BookID != "" {
		attrs = append(attrs, "book_id", call.BookID)
	}
	if call.ChapterID != "" {
		attrs = append(attrs, "chapter_id", call.ChapterID)
	}
	if call.Success {
		r.logger.Debug("llm call", attrs...)
	} else {
		r.logger.Warn("llm call failed", append(attrs, "error", call.Error)...)
	}

	r.mu.Lock()
	r.recent = append(r.recent, call)
	if len(r.recent) > r.limit {
		r.recent = r.recent[len(r.recent)-r.limit:]
	}
	r.mu.Unlock()
}

// Recent returns the recorded calls, oldest first.
func (r *Recorder) Recent() []*Call {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Call, len(r.recent))
	copy(out, r.recent)
	return out
}
