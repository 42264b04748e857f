package srt

import "errors"

// ErrNonFiniteTimestamp indicates a chunk carries a NaN or infinite bound.
var ErrNonFiniteTimestamp = errors.New("non-finite timestamp")

// ErrInvalidOptions indicates a negative, non-finite, or zero tunable.
var ErrInvalidOptions = errors.New("invalid subtitle options")

// ErrMalformed indicates SRT text could not be parsed.
var ErrMalformed = errors.New("malformed srt")
