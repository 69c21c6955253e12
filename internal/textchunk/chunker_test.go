package textchunk

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitShortTextPassesThrough(t *testing.T) {
	for _, text := range []string{"hello", "  padded text  \n", strings.Repeat("a", 5000)} {
		got := Split(text, 5000)
		if len(got) != 1 || got[0] != text {
			t.Errorf("Split(%d chars) = %d chunks, want the input unchanged", len(text), len(got))
		}
	}
}

func TestSplitEmpty(t *testing.T) {
	if got := Split("", 5000); len(got) != 0 {
		t.Errorf("Split(\"\") = %v, want no chunks", got)
	}
}

func TestSplitPrefersParagraphs(t *testing.T) {
	p1 := strings.Repeat("a", 30)
	p2 := strings.Repeat("b", 30)
	got := Split(p1+"\n\n"+p2, 40)
	if len(got) != 2 || got[0] != p1 || got[1] != p2 {
		t.Errorf("unexpected chunks: %q", got)
	}
}

func TestSplitFallsBackToLines(t *testing.T) {
	l1 := strings.Repeat("a", 30)
	l2 := strings.Repeat("b", 30)
	got := Split(l1+"\n"+l2, 40)
	if len(got) != 2 || got[0] != l1 || got[1] != l2 {
		t.Errorf("unexpected chunks: %q", got)
	}
}

func TestSplitFallsBackToSentences(t *testing.T) {
	s1 := strings.Repeat("a", 28) + "."
	s2 := strings.Repeat("b", 28) + "."
	got := Split(s1+" "+s2, 40)
	if len(got) != 2 || got[0] != s1 || got[1] != s2 {
		t.Errorf("unexpected chunks: %q", got)
	}
}

func TestSplitHardCut(t *testing.T) {
	got := Split(strings.Repeat("x", 95), 40)
	want := []int{40, 40, 15}
	if len(got) != len(want) {
		t.Fatalf("got %d chunks, want %d", len(got), len(want))
	}
	for i, n := range want {
		if len(got[i]) != n {
			t.Errorf("chunk %d has %d chars, want %d", i, len(got[i]), n)
		}
	}
}

func TestSplitCountsRunes(t *testing.T) {
	text := strings.Repeat("日本語", 20)
	got := Split(text, 25)
	for i, c := range got {
		if !utf8.ValidString(c) {
			t.Errorf("chunk %d is not valid UTF-8", i)
		}
		if n := utf8.RuneCountInString(c); n > 25 {
			t.Errorf("chunk %d has %d runes", i, n)
		}
	}
	if strings.Join(got, "") != text {
		t.Error("chunks do not reassemble the text")
	}
}

func TestSplitTwelveThousandChars(t *testing.T) {
	para := strings.Repeat("word ", 799) + "end." // 3999 chars
	text := strings.Join([]string{para, para, para}, "\n\n")
	if len(text) != 12001 {
		t.Fatalf("fixture has %d chars", len(text))
	}
	got := Split(text, DefaultMaxChars)
	if len(got) != 3 {
		t.Fatalf("got %d chunks, want 3", len(got))
	}
}

func TestSplitProperties(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 400; i++ {
		b.WriteString("The quick brown fox jumps over the lazy dog. ")
		if i%7 == 0 {
			b.WriteString("\n")
		}
		if i%23 == 0 {
			b.WriteString("\n\n")
		}
	}
	text := b.String()

	for _, maxChars := range []int{50, 120, 333, 1000, 5000} {
		got := Split(text, maxChars)
		for i, c := range got {
			if c == "" {
				t.Fatalf("max=%d: chunk %d is empty", maxChars, i)
			}
			if utf8.RuneCountInString(c) > maxChars {
				t.Fatalf("max=%d: chunk %d has %d chars", maxChars, i, len(c))
			}
		}
		if stripSpace(strings.Join(got, "")) != stripSpace(text) {
			t.Fatalf("max=%d: content lost across chunks", maxChars)
		}
	}
}

func stripSpace(s string) string {
	return strings.Join(strings.Fields(s), "")
}
