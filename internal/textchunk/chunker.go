// Package textchunk splits long translated text into pieces small enough for
// a single speech synthesis request.
package textchunk

import (
	"strings"
	"unicode"
)

// DefaultMaxChars is the default chunk size in characters.
const DefaultMaxChars = 5000

// Split breaks text into ordered, non-empty chunks of at most maxChars
// characters. Break points are tried in order at or before the limit:
// paragraph ("\n\n"), line ("\n"), sentence (". "), then a hard cut.
// Text that already fits is returned unchanged as a single chunk.
//
// Lengths are counted in runes so multi-byte scripts are never cut mid-character.
func Split(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	remaining := []rune(text)
	if len(remaining) == 0 {
		return nil
	}
	if len(remaining) <= maxChars {
		return []string{text}
	}

	var chunks []string
	for len(remaining) > 0 {
		if len(remaining) <= maxChars {
			chunks = append(chunks, string(remaining))
			break
		}

		cut := splitIndex(remaining, maxChars)
		if chunk := strings.TrimSpace(string(remaining[:cut])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		remaining = trimRunes(remaining[cut:])
	}
	return chunks
}

// splitIndex returns where the next chunk ends. The result is always in (0, maxChars].
func splitIndex(text []rune, maxChars int) int {
	if i := lastIndex(text, []rune("\n\n"), maxChars); i > 0 {
		return i
	}
	if i := lastIndex(text, []rune("\n"), maxChars); i > 0 {
		return i
	}
	// Keep the period with its sentence.
	if i := lastIndex(text, []rune(". "), maxChars-1); i >= 0 {
		return i + 1
	}
	return maxChars
}

// lastIndex finds the last occurrence of sep starting at or before from.
func lastIndex(text, sep []rune, from int) int {
	start := min(from, len(text)-len(sep))
	for i := start; i >= 0; i-- {
		match := true
		for j := range sep {
			if text[i+j] != sep[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func trimRunes(r []rune) []rune {
	start, end := 0, len(r)
	for start < end && unicode.IsSpace(r[start]) {
		start++
	}
	for end > start && unicode.IsSpace(r[end-1]) {
		end--
	}
	return r[start:end]
}
