package srt

// SplitChunk breaks an adjusted chunk into wrapped blocks and gives each an
// equal slice of the chunk's interval, in reading order. The slices tile the
// interval exactly. Text with more than one sentence is wrapped sentence by
// sentence so no block straddles a sentence boundary.
//
// Returned blocks are unnumbered. Whitespace-only text yields no blocks.
func SplitChunk(c Chunk, maxChars int) []Block {
	units := SplitSentences(c.Text)
	if len(units) <= 1 {
		units = []string{c.Text}
	}

	var texts []string
	for _, unit := range units {
		texts = append(texts, WrapLines(unit, maxChars)...)
	}
	if len(texts) == 0 {
		return nil
	}

	n := len(texts)
	per := c.Duration() / float64(n)
	blocks := make([]Block, n)
	for i, text := range texts {
		iv := Interval{
			Start: c.Start + float64(i)*per,
			End:   c.Start + float64(i+1)*per,
		}
		// Pin the outer edges so rounding never leaves a gap at either end.
		if i == 0 {
			iv.Start = c.Start
		}
		if i == n-1 {
			iv.End = c.End
		}
		blocks[i] = Block{Text: text, Interval: iv}
	}
	return blocks
}
