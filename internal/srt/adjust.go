package srt

// AdjustChunk widens a raw chunk for display: the start moves back by
// StartPad (never below zero), the end moves forward by EndPad, and the
// span is stretched to at least MinDuration. The text is unchanged.
// Inverted raw bounds (end < start) fall under the floor, so the result
// never has a negative duration while MinDuration is non-negative.
func AdjustChunk(c Chunk, opts Options) Chunk {
	start := max(0, c.Start-opts.StartPad)
	end := c.End + opts.EndPad
	if end-start < opts.MinDuration {
		end = start + opts.MinDuration
	}
	return Chunk{Text: c.Text, Interval: Interval{Start: start, End: end}}
}
