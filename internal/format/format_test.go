package format_test

import (
	"math"
	"testing"
	"time"

	"github.com/alnah/go-narrate/internal/format"
)

// ---------------------------------------------------------------------------
// TestDuration - Formats duration as HH:MM:SS or MM:SS
// ---------------------------------------------------------------------------

func TestDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input time.Duration
		want  string
	}{
		{name: "zero", input: 0, want: "00:00"},
		{name: "boundary: 59 seconds", input: 59 * time.Second, want: "00:59"},
		{name: "boundary: 59 minutes 59 seconds", input: 59*time.Minute + 59*time.Second, want: "59:59"},
		{name: "boundary: exactly 1 hour", input: time.Hour, want: "01:00:00"},
		{name: "2 hours 15 minutes 45 seconds", input: 2*time.Hour + 15*time.Minute + 45*time.Second, want: "02:15:45"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := format.Duration(tt.input); got != tt.want {
				t.Errorf("Duration(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestSeconds - Formats a float span in seconds
// ---------------------------------------------------------------------------

func TestSeconds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input float64
		want  string
	}{
		{name: "zero", input: 0, want: "00:00"},
		{name: "rounds down", input: 3.4, want: "00:03"},
		{name: "rounds up", input: 3.5, want: "00:04"},
		{name: "subtitle track", input: 754.02, want: "12:34"},
		{name: "over an hour", input: 3600.6, want: "01:00:01"},
		{name: "negative", input: -2, want: "00:00"},
		{name: "nan", input: math.NaN(), want: "00:00"},
		{name: "infinite", input: math.Inf(1), want: "00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := format.Seconds(tt.input); got != tt.want {
				t.Errorf("Seconds(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestSize - Formats byte size for human display (MB, KB, bytes)
// ---------------------------------------------------------------------------

const (
	kb = 1024
	mb = 1024 * kb
)

func TestSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input int64
		want  string
	}{
		{name: "zero", input: 0, want: "0 bytes"},
		{name: "boundary: 1023 bytes", input: kb - 1, want: "1023 bytes"},
		{name: "boundary: exactly 1 KB", input: kb, want: "1 KB"},
		{name: "boundary: 1023 KB", input: mb - 1, want: "1023 KB"},
		{name: "typical: 50 MB", input: 50 * mb, want: "50 MB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := format.Size(tt.input); got != tt.want {
				t.Errorf("Size(%d) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// FuzzSeconds verifies Seconds never panics and always returns non-empty.
func FuzzSeconds(f *testing.F) {
	f.Add(0.0)
	f.Add(1.5)
	f.Add(3600.0)
	f.Add(-1.0)

	f.Fuzz(func(t *testing.T, sec float64) {
		if sec > float64(math.MaxInt64/int64(time.Second)) {
			t.Skip("beyond time.Duration range")
		}
		if got := format.Seconds(sec); got == "" {
			t.Errorf("Seconds(%v) returned empty string", sec)
		}
	})
}
