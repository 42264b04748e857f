package srt

import (
	"strings"
	"unicode/utf8"
)

// linesPerBlock is the maximum number of visual lines in one stanza.
const linesPerBlock = 2

// WrapLines greedily wraps sentence into lines of at most width characters,
// breaking only at whitespace, and pairs the lines into blocks joined by a
// newline. A word longer than width occupies its own line unbroken.
// Runs of whitespace collapse to a single space.
// Returns nil for a sentence with no words.
func WrapLines(sentence string, width int) []string {
	lines := wrap(sentence, width)
	if len(lines) == 0 {
		return nil
	}

	blocks := make([]string, 0, (len(lines)+linesPerBlock-1)/linesPerBlock)
	for i := 0; i < len(lines); i += linesPerBlock {
		end := min(i+linesPerBlock, len(lines))
		blocks = append(blocks, strings.Join(lines[i:end], "\n"))
	}
	return blocks
}

func wrap(text string, width int) []string {
	var (
		lines   []string
		current strings.Builder
		length  int
	)
	for _, word := range strings.Fields(text) {
		n := utf8.RuneCountInString(word)
		if length > 0 && length+1+n > width {
			lines = append(lines, current.String())
			current.Reset()
			length = 0
		}
		if length > 0 {
			current.WriteByte(' ')
			length++
		}
		current.WriteString(word)
		length += n
	}
	if length > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
