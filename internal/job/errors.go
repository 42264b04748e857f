package job

import "errors"

var (
	// ErrInvalidRequest indicates a request that cannot run (no prompts,
	// unknown voice or language, negative max_chars).
	ErrInvalidRequest = errors.New("invalid job request")

	// ErrNoBucket indicates neither the environment nor the runner names
	// an output bucket.
	ErrNoBucket = errors.New("no output bucket configured")

	// ErrNoTranscriber indicates generate_srt without a transcriber.
	ErrNoTranscriber = errors.New("subtitles requested but no transcriber configured")
)
