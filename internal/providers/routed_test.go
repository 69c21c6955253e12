package providers

import (
	"context"
	"errors"
	"testing"
)

func TestRoutedLLM_FollowsPick(t *testing.T) {
	reg := NewRegistry()
	a := NewMockClient()
	a.ResponseText = "from a"
	b := NewMockClient()
	b.ResponseText = "from b"
	reg.RegisterLLM("a", a)
	reg.RegisterLLM("b", b)

	name := "a"
	routed := &RoutedLLM{Registry: reg, Pick: func() string { return name }}

	res, err := routed.Chat(context.Background(), &ChatRequest{Messages: []Message{UserMessage("hi")}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Content != "from a" {
		t.Errorf("content = %q", res.Content)
	}

	name = "b"
	res, err = routed.Chat(context.Background(), &ChatRequest{Messages: []Message{UserMessage("hi")}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Content != "from b" {
		t.Errorf("content = %q", res.Content)
	}
	if routed.Name() != "b" {
		t.Errorf("name = %q", routed.Name())
	}

	name = "missing"
	if _, err := routed.Chat(context.Background(), &ChatRequest{}); err == nil {
		t.Error("expected error for unregistered provider")
	}
}

func TestRoutedTTS_MissingProviderIsSynthesisError(t *testing.T) {
	routed := &RoutedTTS{Registry: NewRegistry(), Pick: func() string { return "gone" }}

	_, err := routed.Synthesize(context.Background(), &SpeechRequest{Text: "hi"})
	var synthErr *SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("expected SynthesisError, got %v", err)
	}
	if synthErr.Provider != "gone" {
		t.Errorf("provider = %q", synthErr.Provider)
	}
}

func TestRoutedTTS_Synthesize(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterTTS("mock", NewMockTTS())
	routed := &RoutedTTS{Registry: reg, Pick: func() string { return "mock" }}

	res, err := routed.Synthesize(context.Background(), &SpeechRequest{Text: "hello"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Audio) == 0 || res.Format != FormatPCM {
		t.Errorf("unexpected result %+v", res)
	}

	voices, err := routed.ListVoices(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if voices != nil {
		t.Errorf("mock lists no voices, got %v", voices)
	}
}
