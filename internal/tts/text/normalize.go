// Package text cleans user-typed input before it reaches the speech engine.
// Typographic punctuation and ragged whitespace degrade synthesis, so both
// are normalized to plain forms the engine handles well.
package text

import (
	"regexp"
	"strings"
	"unicode"
)

const whitespaceRegexPattern = `\s+`

var whitespacePattern = regexp.MustCompile(whitespaceRegexPattern)

// punctuationReplacer maps typographic characters to their spoken-friendly
// ASCII forms.
var punctuationReplacer = strings.NewReplacer(
	"—", " - ", // em dash
	"–", " - ", // en dash
	"‒", " - ", // figure dash
	"…", "...", // ellipsis
	"“", `"`, // left double quote
	"”", `"`, // right double quote
	"‘", "'", // left single quote
	"’", "'", // right single quote
	" ", " ", // no-break space
)

// Normalize prepares text for the engine: typographic punctuation becomes
// ASCII, control characters are dropped, and runs of whitespace collapse to
// single spaces. Empty input passes through unchanged.
func Normalize(input string) string {
	if input == "" {
		return input
	}

	normalized := punctuationReplacer.Replace(input)
	normalized = stripControlCharacters(normalized)
	normalized = whitespacePattern.ReplaceAllString(normalized, " ")

	return strings.TrimSpace(normalized)
}

// stripControlCharacters removes non-printable runes while keeping regular
// whitespace for the collapse pass.
func stripControlCharacters(input string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}

		return r
	}, input)
}
