package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

const (
	GeminiName            = "gemini"
	geminiDefaultModel    = "gemini-2.5-flash"
	geminiDefaultTTSModel = "gemini-2.5-flash-preview-tts"
	geminiDefaultVoice    = "Zephyr"
)

// GeminiVoices are the prebuilt voices offered for narration.
var GeminiVoices = []string{"Kore", "Puck", "Charon", "Fenrir", "Zephyr"}

// GeminiConfig holds configuration for the Gemini clients.
type GeminiConfig struct {
	APIKey     string
	BaseURL    string // Overrides the Gemini API endpoint (proxies, tests)
	Model      string
	Voice      string  // TTS only
	RateLimit  float64 // Requests per second, 0 = unlimited
	Timeout    time.Duration
	HTTPClient *http.Client // Optional (tests)
}

// geminiModels wraps the SDK models service with rate limiting and error
// mapping shared by the text and speech clients.
type geminiModels struct {
	models  *genai.Models
	initErr error
	model   string
	limiter *RateLimiter
}

func newGeminiModels(cfg GeminiConfig, defaultModel string) geminiModels {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	m := geminiModels{model: cfg.Model, limiter: NewRateLimiter(cfg.RateLimit)}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		m.initErr = fmt.Errorf("failed to create Gemini client: %w", err)
		return m
	}
	m.models = client.Models
	return m
}

func (m *geminiModels) generate(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if m.initErr != nil {
		return nil, m.initErr
	}
	if err := m.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := m.models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, geminiError(err)
	}
	return resp, nil
}

// geminiError maps SDK API errors onto RateLimitError where the server
// reported a quota or rate limit.
func geminiError(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		var ptr *genai.APIError
		if !errors.As(err, &ptr) || ptr == nil {
			return fmt.Errorf("Gemini request failed: %w", err)
		}
		apiErr = *ptr
	}
	if apiErr.Code == http.StatusTooManyRequests {
		return &RateLimitError{
			Message:    fmt.Sprintf("Gemini rate limited: %s", apiErr.Message),
			RetryAfter: retryDelay(apiErr.Details),
			StatusCode: apiErr.Code,
		}
	}
	return fmt.Errorf("Gemini error (status %d): %s", apiErr.Code, apiErr.Message)
}

// retryDelay reads the RetryInfo detail ("retryDelay": "5s") of an API error.
func retryDelay(details []map[string]any) time.Duration {
	for _, d := range details {
		t, _ := d["@type"].(string)
		if !strings.HasSuffix(t, "google.rpc.RetryInfo") {
			continue
		}
		if s, ok := d["retryDelay"].(string); ok {
			if delay, err := time.ParseDuration(s); err == nil {
				return delay
			}
		}
	}
	return 0
}

// GeminiClient implements LLMClient with the Gemini generateContent API.
type GeminiClient struct {
	models geminiModels
}

// NewGeminiClient creates a new Gemini text client.
func NewGeminiClient(cfg GeminiConfig) *GeminiClient {
	return &GeminiClient{models: newGeminiModels(cfg, geminiDefaultModel)}
}

// Name returns the client identifier.
func (c *GeminiClient) Name() string {
	return GeminiName
}

// Chat sends the messages as a single generateContent call. System messages
// become the system instruction.
func (c *GeminiClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	if req == nil || len(req.Messages) == 0 {
		return nil, fmt.Errorf("chat request has no messages")
	}
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	model := req.Model
	if model == "" {
		model = c.models.model
	}

	var contents []*genai.Content
	var system []string
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			system = append(system, m.Content)
		case "assistant":
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(contents) == 0 {
		return nil, fmt.Errorf("chat request has no user messages")
	}

	config := &genai.GenerateContentConfig{}
	if len(system) > 0 {
		config.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	if req.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	resp, err := c.models.generate(ctx, model, contents, config)
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("Gemini returned no candidates")
	}

	var text strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil && !p.Thought {
			text.WriteString(p.Text)
		}
	}

	result := &ChatResult{
		Content:       strings.TrimSpace(text.String()),
		Provider:      GeminiName,
		ModelUsed:     model,
		RequestID:     requestID,
		ExecutionTime: time.Since(start),
	}
	if u := resp.UsageMetadata; u != nil {
		result.PromptTokens = int(u.PromptTokenCount)
		result.CompletionTokens = int(u.CandidatesTokenCount)
	}
	return result, nil
}

// GeminiTTSClient implements TTSProvider using Gemini's native audio output,
// which returns PCM16 at 24 kHz mono.
type GeminiTTSClient struct {
	models geminiModels
	voice  string
}

// NewGeminiTTSClient creates a new Gemini speech client.
func NewGeminiTTSClient(cfg GeminiConfig) *GeminiTTSClient {
	if cfg.Voice == "" {
		cfg.Voice = geminiDefaultVoice
	}
	return &GeminiTTSClient{
		models: newGeminiModels(cfg, geminiDefaultTTSModel),
		voice:  cfg.Voice,
	}
}

// Name returns the provider identifier.
func (c *GeminiTTSClient) Name() string {
	return GeminiName
}

// Synthesize converts text to PCM audio.
func (c *GeminiTTSClient) Synthesize(ctx context.Context, req *SpeechRequest) (*SpeechResult, error) {
	if req == nil || strings.TrimSpace(req.Text) == "" {
		return nil, &SynthesisError{Provider: GeminiName, Err: fmt.Errorf("text is required")}
	}
	start := time.Now()

	voice := c.voice
	for _, v := range GeminiVoices {
		if strings.EqualFold(v, strings.TrimSpace(req.Voice)) {
			voice = v
			break
		}
	}

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
	}
	resp, err := c.models.generate(ctx, c.models.model, genai.Text(req.Text), config)
	if err != nil {
		return nil, &SynthesisError{Provider: GeminiName, Err: err}
	}

	var audio *genai.Blob
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, p := range resp.Candidates[0].Content.Parts {
			if p != nil && p.InlineData != nil && len(p.InlineData.Data) > 0 {
				audio = p.InlineData
				break
			}
		}
	}
	if audio == nil {
		return nil, &SynthesisError{Provider: GeminiName, Err: ErrNoAudio}
	}

	return &SpeechResult{
		Audio:         audio.Data,
		Format:        FormatPCM,
		SampleRate:    sampleRateFromMIME(audio.MIMEType, DefaultSampleRate),
		Channels:      1,
		Provider:      GeminiName,
		CharCount:     len(req.Text),
		ExecutionTime: time.Since(start),
	}, nil
}

// ListVoices returns the prebuilt narration voices.
func (c *GeminiTTSClient) ListVoices(_ context.Context) ([]Voice, error) {
	voices := make([]Voice, 0, len(GeminiVoices))
	for _, v := range GeminiVoices {
		voices = append(voices, Voice{VoiceID: v, Name: v})
	}
	return voices, nil
}

// sampleRateFromMIME reads "rate=N" from a type like "audio/L16;codec=pcm;rate=24000".
func sampleRateFromMIME(mime string, fallback int) int {
	for _, param := range strings.Split(mime, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(param), "=")
		if ok && strings.EqualFold(k, "rate") {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				return n
			}
		}
	}
	return fallback
}
