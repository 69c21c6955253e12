package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	OpenAITTSName         = "openai"
	KokoroTTSName         = "kokoro"
	KokoroDefaultBaseURL  = "http://localhost:8880/v1"
	openAITTSDefaultModel = openai.SpeechModelTTS1HD
	openAITTSDefaultVoice = "onyx"
	kokoroDefaultModel    = "kokoro"
	kokoroDefaultVoice    = "af_heart"
)

var openAIVoices = []string{
	"alloy", "ash", "ballad", "coral", "echo", "fable", "nova",
	"onyx", "sage", "shimmer", "verse", "marin", "cedar",
}

var kokoroVoices = []string{
	"af_heart", "af_bella", "af_nicole", "am_adam", "am_michael",
	"bf_emma", "bm_george", "ef_dora", "em_alex", "ff_siwis",
}

// OpenAITTSConfig holds configuration for an OpenAI-compatible speech client.
type OpenAITTSConfig struct {
	Name       string // Reported by Name(); defaults to "openai"
	APIKey     string
	Model      string        // "tts-1-hd" (default), "tts-1", "gpt-4o-mini-tts"
	Voice      string        // Default voice
	Format     string        // "pcm" (default) or "wav"
	Speed      float64       // 0.25-4.0
	Voices     []string      // Known voices; unknown requests fall back to Voice
	RateLimit  float64       // Requests per second, 0 = unlimited
	MaxRetries int           // SDK transport retries, 0 = none
	Timeout    time.Duration // HTTP timeout
	BaseURL    string        // Optional (Kokoro, tests)
	HTTPClient *http.Client  // Optional (tests)
}

// OpenAITTSClient implements TTSProvider using the official OpenAI SDK.
type OpenAITTSClient struct {
	name    string
	model   string
	voice   string
	format  string
	speed   float64
	voices  []string
	limiter *RateLimiter
	client  openai.Client
}

// NewOpenAITTSClient creates a new OpenAI TTS client.
func NewOpenAITTSClient(cfg OpenAITTSConfig) *OpenAITTSClient {
	if cfg.Name == "" {
		cfg.Name = OpenAITTSName
	}
	if cfg.Model == "" {
		cfg.Model = openAITTSDefaultModel
	}
	if cfg.Voice == "" {
		cfg.Voice = openAITTSDefaultVoice
	}
	if cfg.Voices == nil {
		cfg.Voices = openAIVoices
	}
	if cfg.Speed <= 0 {
		cfg.Speed = 1.0
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 300 * time.Second
	}
	cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))
	if cfg.Format != FormatWAV {
		cfg.Format = FormatPCM
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

	return &OpenAITTSClient{
		name:    cfg.Name,
		model:   cfg.Model,
		voice:   cfg.Voice,
		format:  cfg.Format,
		speed:   cfg.Speed,
		voices:  cfg.Voices,
		limiter: NewRateLimiter(cfg.RateLimit),
		client:  openai.NewClient(opts...),
	}
}

// NewKokoroTTSClient creates a client for a local Kokoro server, which speaks
// the OpenAI speech API and returns WAV.
func NewKokoroTTSClient(cfg OpenAITTSConfig) *OpenAITTSClient {
	cfg.Name = KokoroTTSName
	if cfg.BaseURL == "" {
		cfg.BaseURL = KokoroDefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = kokoroDefaultModel
	}
	if cfg.Voice == "" {
		cfg.Voice = kokoroDefaultVoice
	}
	if cfg.Voices == nil {
		cfg.Voices = kokoroVoices
	}
	if cfg.APIKey == "" {
		cfg.APIKey = "kokoro"
	}
	cfg.Format = FormatWAV
	return NewOpenAITTSClient(cfg)
}

// Name returns the provider identifier.
func (c *OpenAITTSClient) Name() string {
	return c.name
}

// Model returns the configured default model.
func (c *OpenAITTSClient) Model() string {
	return c.model
}

// Voice returns the configured default voice.
func (c *OpenAITTSClient) Voice() string {
	return c.voice
}

// Synthesize converts text to audio using the speech endpoint.
func (c *OpenAITTSClient) Synthesize(ctx context.Context, req *SpeechRequest) (*SpeechResult, error) {
	if req == nil || strings.TrimSpace(req.Text) == "" {
		return nil, &SynthesisError{Provider: c.name, Err: fmt.Errorf("text is required")}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	start := time.Now()
	text := strings.TrimSpace(req.Text)

	responseFormat := openai.AudioSpeechNewParamsResponseFormatPCM
	if c.format == FormatWAV {
		responseFormat = openai.AudioSpeechNewParamsResponseFormatWAV
	}

	params := openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModel(c.model),
		Voice:          openai.AudioSpeechNewParamsVoice(c.resolveVoice(req.Voice)),
		ResponseFormat: responseFormat,
		Speed:          openai.Float(c.speed),
	}

	resp, err := c.client.Audio.Speech.New(ctx, params)
	if err != nil {
		return nil, &SynthesisError{Provider: c.name, Err: mapOpenAIError(c.name, err)}
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &SynthesisError{Provider: c.name, Err: fmt.Errorf("failed reading audio response: %w", err)}
	}
	if len(audio) == 0 {
		return nil, &SynthesisError{Provider: c.name, Err: ErrNoAudio}
	}

	return &SpeechResult{
		Audio:         audio,
		Format:        c.format,
		SampleRate:    DefaultSampleRate,
		Channels:      1,
		Provider:      c.name,
		CharCount:     len(text),
		ExecutionTime: time.Since(start),
	}, nil
}

// ListVoices returns the voices this backend accepts.
func (c *OpenAITTSClient) ListVoices(_ context.Context) ([]Voice, error) {
	voices := make([]Voice, 0, len(c.voices))
	for _, name := range c.voices {
		voices = append(voices, Voice{VoiceID: name, Name: name})
	}
	return voices, nil
}

func (c *OpenAITTSClient) resolveVoice(requested string) string {
	requested = strings.TrimSpace(requested)
	for _, v := range c.voices {
		if strings.EqualFold(v, requested) {
			return v
		}
	}
	return c.voice
}

var _ TTSProvider = (*OpenAITTSClient)(nil)
var _ VoicesLister = (*OpenAITTSClient)(nil)
