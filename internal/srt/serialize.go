package srt

import (
	"fmt"
	"strconv"
	"strings"
)

// timingSeparator sits between the start and end timestamps of a stanza.
const timingSeparator = " --> "

// Serialize renders numbered blocks as SRT stanzas. Every stanza, the last
// included, ends with a blank line.
func Serialize(blocks []Block) string {
	var b strings.Builder
	for _, blk := range blocks {
		fmt.Fprintf(&b, "%d\n%s%s%s\n%s\n\n",
			blk.Index,
			FormatTimestamp(blk.Start), timingSeparator, FormatTimestamp(blk.End),
			blk.Text)
	}
	return b.String()
}

// Parse reads SRT text back into blocks. Stanzas are separated by blank
// lines; CRLF line endings are accepted.
func Parse(text string) ([]Block, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var blocks []Block
	for _, stanza := range strings.Split(text, "\n\n") {
		stanza = strings.Trim(stanza, "\n")
		if strings.TrimSpace(stanza) == "" {
			continue
		}
		lines := strings.Split(stanza, "\n")
		if len(lines) < 2 {
			return nil, fmt.Errorf("stanza %q has no timing line: %w", stanza, ErrMalformed)
		}

		index, err := strconv.Atoi(strings.TrimSpace(lines[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid index %q: %w", lines[0], ErrMalformed)
		}

		startText, endText, ok := strings.Cut(lines[1], "-->")
		if !ok {
			return nil, fmt.Errorf("invalid timing line %q: %w", lines[1], ErrMalformed)
		}
		start, err := ParseTimestamp(startText)
		if err != nil {
			return nil, err
		}
		end, err := ParseTimestamp(endText)
		if err != nil {
			return nil, err
		}

		blocks = append(blocks, Block{
			Index:    index,
			Text:     strings.Join(lines[2:], "\n"),
			Interval: Interval{Start: start, End: end},
		})
	}
	return blocks, nil
}
