package chapters

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackzampolin/lumina/internal/prompts/segment"
	"github.com/jackzampolin/lumina/internal/providers"
	"github.com/jackzampolin/lumina/internal/types"
)

func newSegmenter(t *testing.T, llm providers.LLMClient) *Segmenter {
	t.Helper()
	s, err := NewSegmenter(Config{LLM: llm})
	if err != nil {
		t.Fatalf("NewSegmenter() error = %v", err)
	}
	return s
}

func TestIdentify_StripsFence(t *testing.T) {
	llm := providers.NewMockClient()
	llm.ResponseText = "```json\n[{\"id\":\"chapter-1\",\"title\":\"The Beginning\",\"summary\":\"It starts.\"}]\n```"

	chapters, err := newSegmenter(t, llm).Identify(context.Background(), "Chapter 1 The Beginning ...")
	if err != nil {
		t.Fatalf("Identify() error = %v", err)
	}
	if len(chapters) != 1 {
		t.Fatalf("expected 1 chapter, got %d", len(chapters))
	}
	ch := chapters[0]
	if ch.ID != "chapter-1" || ch.Title != "The Beginning" || ch.Summary != "It starts." {
		t.Errorf("unexpected chapter %+v", ch)
	}
	if ch.Status != types.StatusIdle || ch.Progress != 0 {
		t.Errorf("expected idle/0, got %s/%d", ch.Status, ch.Progress)
	}
}

func TestIdentify_PromptAndTemperature(t *testing.T) {
	llm := providers.NewMockClient()
	llm.ResponseText = `[{"id":"preface","title":"Preface","summary":"Why."}]`

	if _, err := newSegmenter(t, llm).Identify(context.Background(), "BOOK TEXT"); err != nil {
		t.Fatalf("Identify() error = %v", err)
	}
	reqs := llm.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(reqs))
	}
	req := reqs[0]
	if req.Temperature == nil || *req.Temperature != 0.2 {
		t.Errorf("Temperature = %v, want 0.2", req.Temperature)
	}
	if req.Messages[0].Role != "system" || req.Messages[0].Content != segment.SystemPrompt {
		t.Error("expected the segmentation system prompt first")
	}
	if !strings.HasSuffix(req.Messages[1].Content, "\n\nBOOK TEXT") {
		t.Errorf("user prompt does not end with the book text: %q", req.Messages[1].Content)
	}
}

func TestIdentify_TruncatesInput(t *testing.T) {
	llm := providers.NewMockClient()
	llm.ResponseText = `[{"id":"a","title":"A","summary":"s"}]`
	s, err := NewSegmenter(Config{LLM: llm, MaxContextChars: 10})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Identify(context.Background(), "0123456789ABCDEF"); err != nil {
		t.Fatalf("Identify() error = %v", err)
	}
	user := llm.Requests()[0].Messages[1].Content
	if !strings.HasSuffix(user, "\n\n0123456789") {
		t.Errorf("expected hard cut at 10 chars, got suffix %q", user[len(user)-20:])
	}
}

func TestIdentify_ZeroTemperature(t *testing.T) {
	llm := providers.NewMockClient()
	llm.ResponseText = `[{"id":"a","title":"A","summary":"s"}]`
	s, err := NewSegmenter(Config{LLM: llm, Temperature: providers.Float(0)})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Identify(context.Background(), "BOOK TEXT"); err != nil {
		t.Fatalf("Identify() error = %v", err)
	}
	req := llm.Requests()[0]
	if req.Temperature == nil || *req.Temperature != 0 {
		t.Errorf("Temperature = %v, want explicit 0", req.Temperature)
	}
}

func TestIdentify_Reconfigure(t *testing.T) {
	llm := providers.NewMockClient()
	llm.ResponseText = `[{"id":"a","title":"A","summary":"s"}]`
	s, err := NewSegmenter(Config{LLM: llm, MaxContextChars: 4})
	if err != nil {
		t.Fatal(err)
	}

	s.SetMaxContextChars(10)
	s.SetTemperature(0.7)
	if _, err := s.Identify(context.Background(), "0123456789ABCDEF"); err != nil {
		t.Fatalf("Identify() error = %v", err)
	}
	req := llm.Requests()[0]
	if !strings.HasSuffix(req.Messages[1].Content, "\n\n0123456789") {
		t.Errorf("expected cut at the new budget, got %q", req.Messages[1].Content)
	}
	if req.Temperature == nil || *req.Temperature != 0.7 {
		t.Errorf("Temperature = %v, want 0.7", req.Temperature)
	}

	s.SetMaxContextChars(0)
	if got, _ := s.current(); got != DefaultMaxContextChars {
		t.Errorf("max context = %d, want default %d", got, DefaultMaxContextChars)
	}
}

func TestIdentify_FixesIDs(t *testing.T) {
	llm := providers.NewMockClient()
	llm.ResponseText = `[
		{"id":"intro","title":"Intro","summary":"a"},
		{"id":"","title":"One","summary":"b"},
		{"id":"intro","title":"Two","summary":"c"},
		{"id":"chapter-4","title":"Three","summary":"d"}
	]`

	chapters, err := newSegmenter(t, llm).Identify(context.Background(), "text")
	if err != nil {
		t.Fatalf("Identify() error = %v", err)
	}
	want := []string{"intro", "chapter-2", "chapter-3", "chapter-4"}
	for i, ch := range chapters {
		if ch.ID != want[i] {
			t.Errorf("chapter %d id = %q, want %q", i, ch.ID, want[i])
		}
	}
}

func TestIdentify_Errors(t *testing.T) {
	tests := []struct {
		name     string
		response string
		fail     bool
		text     string
		wantIs   error
	}{
		{name: "empty list", response: "[]", text: "x", wantIs: ErrNoChapters},
		{name: "prose", response: "I could not find chapters.", text: "x"},
		{name: "wrong shape", response: `{"chapters":[]}`, text: "x"},
		{name: "missing title", response: `[{"id":"a","summary":"s"}]`, text: "x"},
		{name: "empty response", response: "", text: "x"},
		{name: "service failure", fail: true, text: "x"},
		{name: "no text", response: `[{"id":"a","title":"A","summary":"s"}]`, text: "   "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := providers.NewMockClient()
			llm.ResponseText = tt.response
			llm.ShouldFail = tt.fail

			chapters, err := newSegmenter(t, llm).Identify(context.Background(), tt.text)
			if err == nil {
				t.Fatalf("expected error, got %d chapters", len(chapters))
			}
			var se *SegmentationError
			if !errors.As(err, &se) {
				t.Fatalf("expected SegmentationError, got %T: %v", err, err)
			}
			if tt.wantIs != nil && !errors.Is(err, tt.wantIs) {
				t.Errorf("expected errors.Is(%v), got %v", tt.wantIs, err)
			}
		})
	}
}

func TestNewSegmenter_RequiresLLM(t *testing.T) {
	if _, err := NewSegmenter(Config{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 3, "hel"},
		{"héllo", 2, "hé"},
		{"hello", 0, "hello"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
