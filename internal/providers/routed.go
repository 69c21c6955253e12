package providers

import (
	"context"
)

// RoutedLLM resolves its client from a Registry on every call, so a config
// reload that replaces or renames providers applies to the next request.
type RoutedLLM struct {
	Registry *Registry
	// Pick returns the provider name to use for the next call.
	Pick func() string
}

// Name returns the currently selected provider name.
func (r *RoutedLLM) Name() string {
	return r.Pick()
}

// Chat forwards to the selected client.
func (r *RoutedLLM) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	client, err := r.Registry.GetLLM(r.Pick())
	if err != nil {
		return nil, err
	}
	return client.Chat(ctx, req)
}

// RoutedTTS is the speech counterpart of RoutedLLM.
type RoutedTTS struct {
	Registry *Registry
	Pick     func() string
}

// Name returns the currently selected provider name.
func (r *RoutedTTS) Name() string {
	return r.Pick()
}

// Synthesize forwards to the selected provider.
func (r *RoutedTTS) Synthesize(ctx context.Context, req *SpeechRequest) (*SpeechResult, error) {
	provider, err := r.Registry.GetTTS(r.Pick())
	if err != nil {
		return nil, &SynthesisError{Provider: r.Pick(), Err: err}
	}
	return provider.Synthesize(ctx, req)
}

// ListVoices forwards to the selected provider when it can enumerate voices.
func (r *RoutedTTS) ListVoices(ctx context.Context) ([]Voice, error) {
	provider, err := r.Registry.GetTTS(r.Pick())
	if err != nil {
		return nil, err
	}
	if lister, ok := provider.(VoicesLister); ok {
		return lister.ListVoices(ctx)
	}
	return nil, nil
}

var (
	_ LLMClient    = (*RoutedLLM)(nil)
	_ TTSProvider  = (*RoutedTTS)(nil)
	_ VoicesLister = (*RoutedTTS)(nil)
)
