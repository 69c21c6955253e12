package translate

import "fmt"

// PromptKey identifies this prompt in call records.
const PromptKey = "chapters.translate"

// SystemPrompt frames the model as a faithful narrator-translator.
const SystemPrompt = `You are a professional audiobook narrator and translator. You extract and faithfully translate text sections without summarizing, adding commentary, or including any introduction or closing phrases.`

// BuildUserPrompt asks for the full text of one section, translated into
// language (an English language name such as "Spanish").
func BuildUserPrompt(title, language, text string) string {
	return fmt.Sprintf(`From the book text below, locate the section titled "%s". Extract its full text and translate it faithfully into %s. Do NOT summarize. Translate every sentence. Output ONLY the translated text.`, title, language) + "\n\n" + text
}
