package srt_test

import (
	"math"
	"testing"

	"github.com/alnah/go-narrate/internal/srt"
)

const tolerance = 1e-9

func TestAdjustChunk(t *testing.T) {
	t.Parallel()

	defaults := srt.DefaultOptions()

	tests := []struct {
		name      string
		in        srt.Interval
		opts      srt.Options
		wantStart float64
		wantEnd   float64
	}{
		{"clamps start at zero", srt.Interval{Start: 0.02, End: 1.0}, defaults, 0, 1.25},
		{"pads both sides", srt.Interval{Start: 2.0, End: 4.0}, defaults, 1.95, 4.25},
		{"short chunk floored", srt.Interval{Start: 1.0, End: 1.1}, defaults, 0.95, 1.45},
		{"inverted bounds floored", srt.Interval{Start: 2.0, End: 1.0}, defaults, 1.95, 2.45},
		{"zero tunables pass through", srt.Interval{Start: 3, End: 5}, srt.Options{MaxChars: 32}, 3, 5},
		{"inverted with zero floor collapses", srt.Interval{Start: 2, End: 1}, srt.Options{MaxChars: 32}, 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			in := srt.Chunk{Text: "x", Interval: tt.in}
			got := srt.AdjustChunk(in, tt.opts)

			if got.Text != "x" {
				t.Errorf("Text = %q, want %q", got.Text, "x")
			}
			if math.Abs(got.Start-tt.wantStart) > tolerance {
				t.Errorf("Start = %v, want %v", got.Start, tt.wantStart)
			}
			if math.Abs(got.End-tt.wantEnd) > tolerance {
				t.Errorf("End = %v, want %v", got.End, tt.wantEnd)
			}
			if got.End < got.Start {
				t.Errorf("End %v before Start %v", got.End, got.Start)
			}
		})
	}
}

func TestAdjustChunk_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	in := srt.Chunk{Text: "x", Interval: srt.Interval{Start: 1, End: 2}}
	_ = srt.AdjustChunk(in, srt.DefaultOptions())

	if in.Start != 1 || in.End != 2 {
		t.Errorf("input mutated: %+v", in)
	}
}
