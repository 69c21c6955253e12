// Package prompts holds the fixed prompts sent to the language model.
// Each task lives in its own subpackage; this package provides helpers
// shared by all of them.
package prompts

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashText returns a SHA256 hash of the text for change detection.
func HashText(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
