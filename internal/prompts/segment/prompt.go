package segment

// PromptKey identifies this prompt in call records.
const PromptKey = "chapters.segment"

// SystemPrompt frames the model as a structural analyzer.
const SystemPrompt = `You are an expert structural analyzer for books. Your goal is to map the book's narrative structure. Capture every meaningful part written by the author (Preface, Foreword, Introduction, Chapters, Epilogue, Acknowledgments, Appendices) but exclude utility sections like the Index or Table of Contents. Output ONLY valid JSON, no markdown, no explanation.`

const userPromptHeader = `Analyze the following book text and return a JSON array. Each element must have exactly these fields: "id" (a slug like "chapter-1"), "title" (the section title), "summary" (one sentence). IMPORTANT: Start your response directly with [ and end with ]. No prose before or after.`

// BuildUserPrompt appends the (already truncated) book text to the instructions.
func BuildUserPrompt(text string) string {
	return userPromptHeader + "\n\n" + text
}
