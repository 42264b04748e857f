package srt

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	msPerSecond = 1_000
	msPerMinute = 60 * msPerSecond
	msPerHour   = 60 * msPerMinute
)

// FormatTimestamp formats seconds as HH:MM:SS,mmm.
// Milliseconds are rounded half away from zero. Negative input is treated as zero.
func FormatTimestamp(seconds float64) string {
	// Ties go away from zero (0.0005 -> 001), not to the even neighbor.
	ms := int64(math.Round(seconds * msPerSecond))
	if ms < 0 {
		ms = 0
	}
	h := ms / msPerHour
	ms %= msPerHour
	m := ms / msPerMinute
	ms %= msPerMinute
	s := ms / msPerSecond
	ms %= msPerSecond
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// ParseTimestamp parses HH:MM:SS,mmm (a period before the milliseconds is
// also accepted) into seconds.
func ParseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp: %w", ErrMalformed)
	}
	value = strings.ReplaceAll(value, ".", ",")
	clock, millis, ok := strings.Cut(value, ",")
	if !ok {
		return 0, fmt.Errorf("invalid timestamp %q: %w", value, ErrMalformed)
	}
	hms := strings.Split(clock, ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q: %w", value, ErrMalformed)
	}

	var fields [4]int
	for i, part := range []string{hms[0], hms[1], hms[2], millis} {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid timestamp %q: %w", value, ErrMalformed)
		}
		fields[i] = n
	}
	total := fields[0]*msPerHour + fields[1]*msPerMinute + fields[2]*msPerSecond + fields[3]
	return float64(total) / msPerSecond, nil
}
