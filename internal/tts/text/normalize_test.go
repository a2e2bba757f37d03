package text_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chatterbox-studio/chatterbox-studio/internal/tts/text"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty input passes through",
			input:    "",
			expected: "",
		},
		{
			name:     "plain text unchanged",
			input:    "Hello, world!",
			expected: "Hello, world!",
		},
		{
			name:     "em dash becomes spoken dash",
			input:    "wait—what",
			expected: "wait - what",
		},
		{
			name:     "en dash becomes spoken dash",
			input:    "pages 3–7",
			expected: "pages 3 - 7",
		},
		{
			name:     "ellipsis becomes three dots",
			input:    "well… maybe",
			expected: "well... maybe",
		},
		{
			name:     "smart double quotes become straight",
			input:    "she said “hi” loudly",
			expected: `she said "hi" loudly`,
		},
		{
			name:     "smart single quotes become apostrophes",
			input:    "it’s ‘fine’",
			expected: "it's 'fine'",
		},
		{
			name:     "whitespace runs collapse",
			input:    "one\t two\n\nthree    four",
			expected: "one two three four",
		},
		{
			name:     "surrounding whitespace trimmed",
			input:    "   padded   ",
			expected: "padded",
		},
		{
			name:     "control characters dropped",
			input:    "be\x00fore\x07 after",
			expected: "before after",
		},
		{
			name:     "no-break space treated as a space",
			input:    "a b",
			expected: "a b",
		},
		{
			name:     "mixed typography in one sentence",
			input:    "  “So…   you’re here—finally.”\n",
			expected: `"So... you're here - finally."`,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, testCase.expected, text.Normalize(testCase.input))
		})
	}
}
