package chapters

// DefaultMaxContextChars is the character budget for text sent to the model.
const DefaultMaxContextChars = 80000

// truncate hard-cuts text to at most max runes. max <= 0 disables the cut.
func truncate(text string, max int) string {
	if max <= 0 {
		return text
	}
	n := 0
	for i := range text {
		if n == max {
			return text[:i]
		}
		n++
	}
	return text
}
