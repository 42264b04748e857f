package cli

import "errors"

// CLI-specific sentinel errors.
// These are validation/usage errors that don't belong to domain packages.

var (
	// ErrAPIKeyMissing indicates OPENAI_API_KEY environment variable is not set.
	ErrAPIKeyMissing = errors.New("OPENAI_API_KEY environment variable not set")

	// ErrUnsupportedFormat indicates an audio file has an unsupported extension.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrFileNotFound indicates the specified input file does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrOutputExists indicates the output file already exists.
	ErrOutputExists = errors.New("output file already exists")

	// ErrOutputWithManyInputs indicates --output was given with several inputs.
	ErrOutputWithManyInputs = errors.New("--output accepts a single input file")

	// ErrDuplicateOutput indicates two inputs resolve to the same output file.
	ErrDuplicateOutput = errors.New("inputs resolve to the same output file")

	// ErrInvalidLogFormat indicates a --log-format other than text or json.
	ErrInvalidLogFormat = errors.New("invalid log format")

	// ErrJobFailed indicates a job finished with an error result.
	ErrJobFailed = errors.New("job failed")
)
