package chapters

import "strings"

// DefaultLanguage is the target language code used when none is given.
const DefaultLanguage = "es"

// Language is a selectable narration language.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Languages lists the supported target languages in display order.
var Languages = []Language{
	{Code: "es", Name: "Spanish"},
	{Code: "en", Name: "English"},
	{Code: "fr", Name: "French"},
	{Code: "de", Name: "German"},
	{Code: "it", Name: "Italian"},
	{Code: "pt", Name: "Portuguese"},
	{Code: "ja", Name: "Japanese"},
}

// LanguageName resolves a language code or name to the English name used in
// prompts. Unknown values are returned trimmed, so a caller may pass any
// language name the model understands. Empty resolves to the default.
func LanguageName(codeOrName string) string {
	v := strings.TrimSpace(codeOrName)
	if v == "" {
		v = DefaultLanguage
	}
	for _, l := range Languages {
		if strings.EqualFold(l.Code, v) || strings.EqualFold(l.Name, v) {
			return l.Name
		}
	}
	return v
}

// IsSupportedLanguage reports whether code is one of Languages.
func IsSupportedLanguage(code string) bool {
	for _, l := range Languages {
		if strings.EqualFold(l.Code, code) {
			return true
		}
	}
	return false
}
