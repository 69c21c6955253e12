package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestGeminiClient_Chat(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-2.5-flash:generateContent") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if key := r.Header.Get("x-goog-api-key"); key != "test-key" {
			t.Errorf("unexpected api key: %q", key)
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates":[{"content":{"role":"model","parts":[{"text":"Hola "},{"text":"mundo"}]},"finishReason":"STOP"}],
			"usageMetadata":{"promptTokenCount":7,"candidatesTokenCount":3}
		}`))
	}))
	defer server.Close()

	client := NewGeminiClient(GeminiConfig{APIKey: "test-key", BaseURL: server.URL})
	result, err := client.Chat(context.Background(), &ChatRequest{
		Messages:    []Message{SystemMessage("be brief"), UserMessage("translate")},
		Temperature: Float(0.2),
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if result.Content != "Hola mundo" {
		t.Errorf("Content = %q", result.Content)
	}
	if result.PromptTokens != 7 || result.CompletionTokens != 3 {
		t.Errorf("tokens = %d/%d", result.PromptTokens, result.CompletionTokens)
	}

	sys := payload["systemInstruction"].(map[string]any)["parts"].([]any)[0].(map[string]any)["text"]
	if sys != "be brief" {
		t.Errorf("systemInstruction = %v", sys)
	}
	contents := payload["contents"].([]any)
	if len(contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(contents))
	}
	if role := contents[0].(map[string]any)["role"]; role != "user" {
		t.Errorf("role = %v", role)
	}
	temp := payload["generationConfig"].(map[string]any)["temperature"]
	if temp != 0.2 {
		t.Errorf("temperature = %v", temp)
	}
}

func TestGeminiClient_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED",
			"details":[{"@type":"type.googleapis.com/google.rpc.RetryInfo","retryDelay":"5s"}]}}`))
	}))
	defer server.Close()

	client := NewGeminiClient(GeminiConfig{APIKey: "k", BaseURL: server.URL})
	_, err := client.Chat(context.Background(), &ChatRequest{Messages: []Message{UserMessage("x")}})
	var rle *RateLimitError
	if !errors.As(err, &rle) {
		t.Fatalf("expected RateLimitError, got %T: %v", err, err)
	}
	if rle.StatusCode != http.StatusTooManyRequests {
		t.Errorf("StatusCode = %d", rle.StatusCode)
	}
	if rle.RetryAfter != 5*time.Second {
		t.Errorf("RetryAfter = %v, want 5s", rle.RetryAfter)
	}
}

func TestGeminiClient_ZeroTemperature(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&payload)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"ok"}]}}]}`))
	}))
	defer server.Close()

	client := NewGeminiClient(GeminiConfig{APIKey: "k", BaseURL: server.URL})
	if _, err := client.Chat(context.Background(), &ChatRequest{
		Messages:    []Message{UserMessage("x")},
		Temperature: Float(0),
	}); err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	gen, _ := payload["generationConfig"].(map[string]any)
	if temp, ok := gen["temperature"]; !ok || temp != 0.0 {
		t.Errorf("temperature = %v (present %v), want 0", temp, ok)
	}
}

func TestGeminiClient_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"bad model","status":"INVALID_ARGUMENT"}}`))
	}))
	defer server.Close()

	client := NewGeminiClient(GeminiConfig{APIKey: "k", BaseURL: server.URL})
	_, err := client.Chat(context.Background(), &ChatRequest{Messages: []Message{UserMessage("x")}})
	if err == nil || !strings.Contains(err.Error(), "bad model") {
		t.Fatalf("expected API error message, got %v", err)
	}
	var rle *RateLimitError
	if errors.As(err, &rle) {
		t.Error("400 must not be reported as a rate limit")
	}
}

func TestGeminiTTSClient_Synthesize(t *testing.T) {
	pcm := []byte{0x00, 0x40, 0x00, 0xC0}
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-2.5-flash-preview-tts:generateContent") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		resp := map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"parts": []any{map[string]any{
					"inlineData": map[string]any{
						"mimeType": "audio/L16;codec=pcm;rate=24000",
						"data":     base64.StdEncoding.EncodeToString(pcm),
					},
				}}},
			}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewGeminiTTSClient(GeminiConfig{APIKey: "k", BaseURL: server.URL})
	result, err := client.Synthesize(context.Background(), &SpeechRequest{Text: "Hola", Voice: "kore"})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if string(result.Audio) != string(pcm) {
		t.Errorf("Audio = %v", result.Audio)
	}
	if result.Format != FormatPCM || result.SampleRate != 24000 || result.Channels != 1 {
		t.Errorf("unexpected result: %+v", result)
	}

	cfg := payload["generationConfig"].(map[string]any)
	if mods := cfg["responseModalities"].([]any); len(mods) != 1 || mods[0] != "AUDIO" {
		t.Errorf("responseModalities = %v", mods)
	}
	voice := cfg["speechConfig"].(map[string]any)["voiceConfig"].(map[string]any)["prebuiltVoiceConfig"].(map[string]any)["voiceName"]
	if voice != "Kore" {
		t.Errorf("voiceName = %v, want Kore", voice)
	}
}

func TestGeminiTTSClient_DefaultVoice(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&payload)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"audio/L16;rate=16000","data":"AAA="}}]}}]}`))
	}))
	defer server.Close()

	client := NewGeminiTTSClient(GeminiConfig{APIKey: "k", BaseURL: server.URL})
	result, err := client.Synthesize(context.Background(), &SpeechRequest{Text: "x", Voice: "nobody"})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if result.SampleRate != 16000 {
		t.Errorf("SampleRate = %d, want 16000", result.SampleRate)
	}
	voice := payload["generationConfig"].(map[string]any)["speechConfig"].(map[string]any)["voiceConfig"].(map[string]any)["prebuiltVoiceConfig"].(map[string]any)["voiceName"]
	if voice != "Zephyr" {
		t.Errorf("voiceName = %v, want Zephyr", voice)
	}
}

func TestGeminiTTSClient_NoAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"sorry"}]}}]}`))
	}))
	defer server.Close()

	client := NewGeminiTTSClient(GeminiConfig{APIKey: "k", BaseURL: server.URL})
	_, err := client.Synthesize(context.Background(), &SpeechRequest{Text: "x"})
	if !errors.Is(err, ErrNoAudio) {
		t.Fatalf("expected ErrNoAudio, got %v", err)
	}
	var se *SynthesisError
	if !errors.As(err, &se) || se.Provider != GeminiName {
		t.Fatalf("expected gemini SynthesisError, got %T", err)
	}
}

func TestSampleRateFromMIME(t *testing.T) {
	tests := []struct {
		mime string
		want int
	}{
		{"audio/L16;codec=pcm;rate=24000", 24000},
		{"audio/L16; rate=16000", 16000},
		{"audio/L16", 24000},
		{"audio/L16;rate=abc", 24000},
	}
	for _, tt := range tests {
		if got := sampleRateFromMIME(tt.mime, 24000); got != tt.want {
			t.Errorf("sampleRateFromMIME(%q) = %d, want %d", tt.mime, got, tt.want)
		}
	}
}

func TestGeminiTTSClient_ListVoices(t *testing.T) {
	voices, err := NewGeminiTTSClient(GeminiConfig{APIKey: "k"}).ListVoices(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(voices) != 5 {
		t.Fatalf("expected 5 voices, got %d", len(voices))
	}
}
