package srt

import (
	"strings"
	"unicode"
)

// SplitSentences splits text after every '.', '!' or '?' that is directly
// followed by whitespace. Terminators stay with their sentence, the
// separating whitespace is dropped, and each sentence is trimmed.
// Empty pieces are discarded. Abbreviations such as "Mr. Smith" split too.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(text)
	runes := []rune(text)

	var sentences []string
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminator(runes[i]) || i+1 >= len(runes) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		sentences = appendTrimmed(sentences, string(runes[start:i+1]))
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		start = j
		i = j - 1
	}
	return appendTrimmed(sentences, string(runes[start:]))
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func appendTrimmed(dst []string, s string) []string {
	if s = strings.TrimSpace(s); s != "" {
		return append(dst, s)
	}
	return dst
}
