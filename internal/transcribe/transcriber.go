// Package transcribe recognizes speech in audio files and returns the
// timestamped chunks the subtitle pipeline consumes.
package transcribe

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-narrate/internal/apierr"
	"github.com/alnah/go-narrate/internal/lang"
	"github.com/alnah/go-narrate/internal/srt"
)

// MaxRecommendedParallel is the recommended upper limit for concurrent
// transcription requests. Higher values may trigger rate limiting.
const MaxRecommendedParallel = 10

// Options configures a transcription request.
type Options struct {
	// Language hints the spoken language. Empty means auto-detect.
	Language string

	// Prompt provides context to improve accuracy, e.g. the text that was
	// synthesized into the audio.
	Prompt string
}

// Transcriber converts an audio file into timestamped text chunks.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, opts Options) ([]srt.Chunk, error)
}

// audioTranscriber is satisfied by *openai.Client and by test mocks.
type audioTranscriber interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
}

var (
	_ Transcriber      = (*OpenAITranscriber)(nil)
	_ audioTranscriber = (*openai.Client)(nil)
)

// OpenAITranscriber uses whisper-1 with segment timestamps.
// Transient failures are retried with exponential backoff.
type OpenAITranscriber struct {
	client audioTranscriber
	retry  apierr.RetryConfig
}

// TranscriberOption configures an OpenAITranscriber.
type TranscriberOption func(*OpenAITranscriber)

// WithMaxRetries sets the maximum number of retry attempts.
func WithMaxRetries(n int) TranscriberOption {
	return func(t *OpenAITranscriber) {
		if n >= 0 {
			t.retry.MaxRetries = n
		}
	}
}

// WithRetryDelays sets the base and max delays for exponential backoff.
func WithRetryDelays(base, max time.Duration) TranscriberOption {
	return func(t *OpenAITranscriber) {
		if base > 0 {
			t.retry.BaseDelay = base
		}
		if max > 0 {
			t.retry.MaxDelay = max
		}
	}
}

// NewOpenAITranscriber creates a transcriber backed by client.
func NewOpenAITranscriber(client *openai.Client, opts ...TranscriberOption) *OpenAITranscriber {
	return newTranscriber(client, opts...)
}

func newTranscriber(client audioTranscriber, opts ...TranscriberOption) *OpenAITranscriber {
	t := &OpenAITranscriber{
		client: client,
		retry:  apierr.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Transcribe sends audioPath to the transcription endpoint and returns one
// chunk per recognized segment, in order.
func (t *OpenAITranscriber) Transcribe(ctx context.Context, audioPath string, opts Options) ([]srt.Chunk, error) {
	if err := lang.Validate(opts.Language); err != nil {
		return nil, err
	}

	req := openai.AudioRequest{
		Model:                  openai.Whisper1,
		FilePath:               audioPath,
		Format:                 openai.AudioResponseFormatVerboseJSON,
		Prompt:                 opts.Prompt,
		Language:               lang.BaseCode(opts.Language),
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{openai.TranscriptionTimestampGranularitySegment},
	}

	resp, err := apierr.RetryWithBackoff(ctx, t.retry, func() (openai.AudioResponse, error) {
		resp, err := t.client.CreateTranscription(ctx, req)
		if err != nil {
			return openai.AudioResponse{}, apierr.Classify(err)
		}
		return resp, nil
	}, apierr.IsRetryable)
	if err != nil {
		return nil, err
	}

	return chunksFromResponse(resp), nil
}

// chunksFromResponse converts response segments to chunks. A response with
// text but no segments becomes a single chunk spanning the whole audio.
func chunksFromResponse(resp openai.AudioResponse) []srt.Chunk {
	if len(resp.Segments) == 0 {
		if resp.Text == "" {
			return nil
		}
		return []srt.Chunk{{
			Text:     resp.Text,
			Interval: srt.Interval{Start: 0, End: resp.Duration},
		}}
	}

	chunks := make([]srt.Chunk, 0, len(resp.Segments))
	for _, seg := range resp.Segments {
		chunks = append(chunks, srt.Chunk{
			Text:     seg.Text,
			Interval: srt.Interval{Start: seg.Start, End: seg.End},
		})
	}
	return chunks
}

// TranscribeAll transcribes several files in parallel. Results keep the
// order of paths. The first failure cancels the remaining requests.
// maxParallel limits concurrent API requests (1-MaxRecommendedParallel recommended).
func TranscribeAll(
	ctx context.Context,
	paths []string,
	t Transcriber,
	opts Options,
	maxParallel int,
) ([][]srt.Chunk, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	if maxParallel < 1 {
		maxParallel = 1
	}

	results := make([][]srt.Chunk, len(paths))
	sem := make(chan struct{}, maxParallel)

	g, ctx := errgroup.WithContext(ctx)

	for i, path := range paths {
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}
			defer func() { <-sem }()

			chunks, err := t.Transcribe(ctx, path, opts)
			if err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(path), err)
			}
			results[i] = chunks
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
