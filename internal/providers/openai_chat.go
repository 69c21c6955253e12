package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	OpenAIChatName         = "openai"
	OllamaName             = "ollama"
	OllamaDefaultBaseURL   = "http://localhost:11434/v1"
	openAIChatDefaultModel = "gpt-4o-mini"
	ollamaDefaultModel     = "gemma3:12b"
)

// OpenAIChatConfig holds configuration for an OpenAI-compatible chat client.
// The same client serves OpenAI, Ollama and any other server that speaks the
// chat completions API, selected by BaseURL.
type OpenAIChatConfig struct {
	Name       string // Reported by Name(); defaults to "openai"
	APIKey     string
	Model      string
	BaseURL    string
	RateLimit  float64       // Requests per second, 0 = unlimited
	MaxRetries int           // SDK transport retries, 0 = none
	Timeout    time.Duration // HTTP timeout
	HTTPClient *http.Client  // Optional (tests)
}

// OpenAIChatClient implements LLMClient using the official OpenAI SDK.
type OpenAIChatClient struct {
	name    string
	model   string
	limiter *RateLimiter
	client  openai.Client
}

// NewOpenAIChatClient creates a new OpenAI-compatible chat client.
func NewOpenAIChatClient(cfg OpenAIChatConfig) *OpenAIChatClient {
	if cfg.Name == "" {
		cfg.Name = OpenAIChatName
	}
	if cfg.Model == "" {
		cfg.Model = openAIChatDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Minute
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIChatClient{
		name:    cfg.Name,
		model:   cfg.Model,
		limiter: NewRateLimiter(cfg.RateLimit),
		client:  openai.NewClient(opts...),
	}
}

// NewOllamaClient creates a chat client for a local Ollama server.
func NewOllamaClient(cfg OpenAIChatConfig) *OpenAIChatClient {
	cfg.Name = OllamaName
	if cfg.BaseURL == "" {
		cfg.BaseURL = OllamaDefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = ollamaDefaultModel
	}
	if cfg.APIKey == "" {
		// Ollama ignores the key but the SDK requires one.
		cfg.APIKey = "ollama"
	}
	return NewOpenAIChatClient(cfg)
}

// Name returns the client identifier.
func (c *OpenAIChatClient) Name() string {
	return c.name
}

// Model returns the configured default model.
func (c *OpenAIChatClient) Model() string {
	return c.model
}

// Chat sends a chat completion request.
func (c *OpenAIChatClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	if req == nil || len(req.Messages) == 0 {
		return nil, fmt.Errorf("chat request has no messages")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	model := req.Model
	if model == "" {
		model = c.model
	}

	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case "assistant":
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: msgs,
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, mapOpenAIError(c.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s returned no choices (model=%s)", c.name, model)
	}

	return &ChatResult{
		Content:          strings.TrimSpace(resp.Choices[0].Message.Content),
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		Provider:         c.name,
		ModelUsed:        resp.Model,
		RequestID:        requestID,
		ExecutionTime:    time.Since(start),
	}, nil
}

func mapOpenAIError(provider string, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			retryAfter := time.Duration(0)
			if apiErr.Response != nil {
				retryAfter = parseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
			}
			return &RateLimitError{
				Message:    fmt.Sprintf("%s rate limited: %s", provider, apiErr.Message),
				RetryAfter: retryAfter,
				StatusCode: apiErr.StatusCode,
			}
		}
		if apiErr.Message != "" {
			return fmt.Errorf("%s error (status %d): %s", provider, apiErr.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("%s error (status %d)", provider, apiErr.StatusCode)
	}
	return err
}

var _ LLMClient = (*OpenAIChatClient)(nil)
