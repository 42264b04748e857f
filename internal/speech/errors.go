package speech

import "errors"

var (
	// ErrEmptyText indicates there is nothing to synthesize.
	ErrEmptyText = errors.New("empty text")

	// ErrInvalidVoice indicates a voice name the speech model does not offer.
	ErrInvalidVoice = errors.New("invalid voice")

	// ErrInvalidSpeed indicates a speaking rate outside MinSpeed..MaxSpeed.
	ErrInvalidSpeed = errors.New("invalid speed")

	// ErrInvalidWAV indicates synthesized audio lacks a readable WAV header.
	ErrInvalidWAV = errors.New("invalid wav header")
)
