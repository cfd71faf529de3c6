// Package transcript cleans speech-to-text output before it is evaluated.
package transcript

import (
	"regexp"
	"strings"
	"unicode"
)

// MinAudibleRunes is the shortest transcript treated as a real answer.
const MinAudibleRunes = 3

// annotationPattern matches recognizer annotations such as [BLANK_AUDIO]
// or (music) that carry no spoken content.
var annotationPattern = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)`)

// Normalize drops recognizer annotations and collapses whitespace.
func Normalize(raw string) string {
	cleaned := annotationPattern.ReplaceAllString(raw, " ")
	return strings.Join(strings.Fields(cleaned), " ")
}

// IsInaudible reports whether text has fewer than MinAudibleRunes spoken
// characters. Punctuation and whitespace do not count; combining marks do,
// so Devanagari vowel signs are measured like letters.
func IsInaudible(text string) bool {
	count := 0
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) {
			count++
			if count >= MinAudibleRunes {
				return false
			}
		}
	}
	return true
}

// Truncate shortens text to at most limit runes, appending an ellipsis when
// anything was cut.
func Truncate(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= limit {
		return string(runes)
	}
	return strings.TrimSpace(string(runes[:limit])) + "..."
}
