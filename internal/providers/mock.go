package providers

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// MockClient is an LLMClient for testing and offline runs.
type MockClient struct {
	// Configurable behavior
	Latency      time.Duration
	ShouldFail   bool
	FailAfter    int // Fail after N requests (0 = never)
	ResponseText string

	// Responses are returned in order, one per call, before falling back to
	// Respond or ResponseText.
	Responses []string

	// Respond, when set, computes the reply from the request.
	Respond func(req *ChatRequest) (string, error)

	// State
	requestCount atomic.Int64
	mu           sync.Mutex
	requests     []ChatRequest
}

// NewMockClient creates a new mock client with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{
		ResponseText: "mock response",
	}
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockClientName
}

// Chat returns the configured reply.
func (c *MockClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()
	count := c.requestCount.Add(1)

	c.mu.Lock()
	c.requests = append(c.requests, *req)
	c.mu.Unlock()

	if c.ShouldFail {
		return nil, fmt.Errorf("mock client configured to fail")
	}
	if c.FailAfter > 0 && int(count) > c.FailAfter {
		return nil, fmt.Errorf("mock client failed after %d requests", c.FailAfter)
	}

	if c.Latency > 0 {
		select {
		case <-time.After(c.Latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	content := c.ResponseText
	switch {
	case int(count) <= len(c.Responses):
		content = c.Responses[count-1]
	case c.Respond != nil:
		var err error
		content, err = c.Respond(req)
		if err != nil {
			return nil, err
		}
	}

	promptTokens := 0
	for _, m := range req.Messages {
		promptTokens += len(m.Content) / 4 // Rough estimate
	}

	return &ChatResult{
		Content:          content,
		PromptTokens:     promptTokens,
		CompletionTokens: len(content) / 4,
		Provider:         MockClientName,
		ModelUsed:        req.Model,
		RequestID:        fmt.Sprintf("mock-%d", count),
		ExecutionTime:    time.Since(start),
	}, nil
}

// RequestCount returns the number of requests made.
func (c *MockClient) RequestCount() int64 {
	return c.requestCount.Load()
}

// Requests returns a copy of every request received.
func (c *MockClient) Requests() []ChatRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ChatRequest, len(c.requests))
	copy(out, c.requests)
	return out
}

// Reset clears the request counter and history.
func (c *MockClient) Reset() {
	c.requestCount.Store(0)
	c.mu.Lock()
	c.requests = nil
	c.mu.Unlock()
}

var _ LLMClient = (*MockClient)(nil)

// MockTTS is a TTSProvider for testing. It returns PCM16 mono audio whose
// length is proportional to the input text.
type MockTTS struct {
	Latency    time.Duration
	SampleRate int

	// SamplesPerChar controls the output length (default: 24, 1 ms at 24 kHz).
	SamplesPerChar int

	// FailOn maps a 1-based call number to the error that call returns.
	FailOn map[int]error

	requestCount atomic.Int64
	mu           sync.Mutex
	texts        []string
}

// NewMockTTS creates a new mock speech provider.
func NewMockTTS() *MockTTS {
	return &MockTTS{
		SampleRate:     DefaultSampleRate,
		SamplesPerChar: 24,
	}
}

// Name returns the provider identifier.
func (p *MockTTS) Name() string {
	return MockClientName
}

// Synthesize returns a deterministic PCM16 ramp.
func (p *MockTTS) Synthesize(ctx context.Context, req *SpeechRequest) (*SpeechResult, error) {
	start := time.Now()
	count := int(p.requestCount.Add(1))

	p.mu.Lock()
	p.texts = append(p.texts, req.Text)
	p.mu.Unlock()

	if err, ok := p.FailOn[count]; ok {
		return nil, &SynthesisError{Provider: MockClientName, Err: err}
	}

	if p.Latency > 0 {
		select {
		case <-time.After(p.Latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	perChar := p.SamplesPerChar
	if perChar <= 0 {
		perChar = 24
	}
	rate := p.SampleRate
	if rate <= 0 {
		rate = DefaultSampleRate
	}

	samples := len([]rune(req.Text)) * perChar
	audio := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		binary.LittleEndian.PutUint16(audio[i*2:], uint16(int16((i%200)*100-10000)))
	}

	return &SpeechResult{
		Audio:         audio,
		Format:        FormatPCM,
		SampleRate:    rate,
		Channels:      1,
		Provider:      MockClientName,
		CharCount:     len(req.Text),
		ExecutionTime: time.Since(start),
	}, nil
}

// RequestCount returns the number of synthesis calls made.
func (p *MockTTS) RequestCount() int64 {
	return p.requestCount.Load()
}

// Texts returns the text of every synthesis call, in order.
func (p *MockTTS) Texts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.texts))
	copy(out, p.texts)
	return out
}

var _ TTSProvider = (*MockTTS)(nil)
