// Package srt turns timestamped transcript chunks into a paced SRT subtitle file.
//
// The pipeline is pure: every stage returns new values and nothing is cached
// between calls, so Generate may run concurrently on independent inputs.
package srt

import (
	"fmt"
	"math"
)

// Default tunables.
const (
	DefaultStartPad    = 0.05
	DefaultEndPad      = 0.25
	DefaultMinDuration = 0.5
	DefaultMaxChars    = 32
)

// Interval is a time span in seconds.
type Interval struct {
	Start float64
	End   float64
}

// Duration returns End - Start.
func (iv Interval) Duration() float64 {
	return iv.End - iv.Start
}

// Chunk is a transcribed text fragment with its audible span.
type Chunk struct {
	Text string
	Interval
}

// Block is one subtitle stanza. Index is 1-based once numbered.
type Block struct {
	Index int
	Text  string
	Interval
}

// Options holds the timing and layout tunables.
type Options struct {
	// StartPad is subtracted from each chunk start (clamped at zero).
	StartPad float64
	// EndPad is added to each chunk end.
	EndPad float64
	// MinDuration is the floor for an adjusted chunk's display time.
	MinDuration float64
	// MaxChars is the wrap width of a subtitle line, in characters.
	MaxChars int
}

// DefaultOptions returns the standard tunables.
func DefaultOptions() Options {
	return Options{
		StartPad:    DefaultStartPad,
		EndPad:      DefaultEndPad,
		MinDuration: DefaultMinDuration,
		MaxChars:    DefaultMaxChars,
	}
}

// Validate reports whether every tunable is usable.
func (o Options) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"start pad", o.StartPad},
		{"end pad", o.EndPad},
		{"min duration", o.MinDuration},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) || f.value < 0 {
			return fmt.Errorf("%s must be a non-negative number, got %v: %w", f.name, f.value, ErrInvalidOptions)
		}
	}
	if o.MaxChars < 1 {
		return fmt.Errorf("max chars must be at least 1, got %d: %w", o.MaxChars, ErrInvalidOptions)
	}
	return nil
}

// Blocks adjusts and splits every chunk in order, then numbers the
// accumulated blocks from 1.
func Blocks(chunks []Chunk, opts Options) ([]Block, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var blocks []Block
	for i, c := range chunks {
		if !isFinite(c.Start) || !isFinite(c.End) {
			return nil, fmt.Errorf("chunk %d (%v, %v): %w", i, c.Start, c.End, ErrNonFiniteTimestamp)
		}
		blocks = append(blocks, SplitChunk(AdjustChunk(c, opts), opts.MaxChars)...)
	}

	for i := range blocks {
		blocks[i].Index = i + 1
	}
	return blocks, nil
}

// Generate renders chunks as SRT text. An empty chunk list yields "".
func Generate(chunks []Chunk, opts Options) (string, error) {
	blocks, err := Blocks(chunks, opts)
	if err != nil {
		return "", err
	}
	return Serialize(blocks), nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
