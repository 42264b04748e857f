// Package speech synthesizes narration audio from text.
package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/go-narrate/internal/apierr"
)

// DefaultVoice is used when Options.Voice is empty.
const DefaultVoice = "alloy"

// DefaultSampleRate is reported when the audio header cannot be read.
// OpenAI's WAV output is 24 kHz mono.
const DefaultSampleRate = 24000

// Speaking rate bounds accepted by the speech endpoint.
const (
	MinSpeed = 0.25
	MaxSpeed = 4.0
)

// Voices lists the voices offered by the speech endpoint.
var Voices = []string{
	"alloy", "ash", "ballad", "coral", "echo", "fable",
	"nova", "onyx", "sage", "shimmer", "verse",
}

// ValidateVoice checks name against Voices. Empty selects DefaultVoice.
func ValidateVoice(name string) error {
	if name == "" || slices.Contains(Voices, name) {
		return nil
	}
	return fmt.Errorf("unknown voice %q (available: %s): %w", name, strings.Join(Voices, ", "), ErrInvalidVoice)
}

// ValidateSpeed checks speed against MinSpeed and MaxSpeed. Zero keeps the
// model default.
func ValidateSpeed(speed float64) error {
	if speed == 0 || (speed >= MinSpeed && speed <= MaxSpeed) {
		return nil
	}
	return fmt.Errorf("speed %g outside %g..%g: %w", speed, MinSpeed, MaxSpeed, ErrInvalidSpeed)
}

// Options configures a synthesis request.
type Options struct {
	// Voice selects a built-in voice. Empty means DefaultVoice.
	Voice string

	// Speed scales speaking rate (0.25 to 4.0). Zero keeps the model default.
	Speed float64

	// ReferencePath points at a local voice sample for synthesizers that
	// clone voices. The OpenAI voices are fixed, so it only has to exist.
	ReferencePath string
}

// Result describes a synthesized file.
type Result struct {
	Path       string
	SampleRate int
	Bytes      int64
}

// Synthesizer turns text into an audio file at outPath.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, outPath string, opts Options) (Result, error)
}

// speechCreator is satisfied by *openai.Client and by test mocks.
type speechCreator interface {
	CreateSpeech(ctx context.Context, req openai.CreateSpeechRequest) (openai.RawResponse, error)
}

var (
	_ Synthesizer   = (*OpenAISynthesizer)(nil)
	_ speechCreator = (*openai.Client)(nil)
)

// OpenAISynthesizer renders WAV audio with the tts-1 model.
type OpenAISynthesizer struct {
	client speechCreator
	model  openai.SpeechModel
	retry  apierr.RetryConfig
}

// SynthesizerOption configures an OpenAISynthesizer.
type SynthesizerOption func(*OpenAISynthesizer)

// WithRetry overrides the retry policy.
func WithRetry(cfg apierr.RetryConfig) SynthesizerOption {
	return func(s *OpenAISynthesizer) {
		s.retry = cfg
	}
}

// NewOpenAISynthesizer creates a synthesizer backed by client.
func NewOpenAISynthesizer(client *openai.Client, opts ...SynthesizerOption) *OpenAISynthesizer {
	return newSynthesizer(client, opts...)
}

func newSynthesizer(client speechCreator, opts ...SynthesizerOption) *OpenAISynthesizer {
	s := &OpenAISynthesizer{
		client: client,
		model:  openai.TTSModel1,
		retry:  apierr.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize requests WAV speech for text and writes it to outPath,
// replacing any existing file. Transient API failures are retried.
func (s *OpenAISynthesizer) Synthesize(ctx context.Context, text, outPath string, opts Options) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrEmptyText
	}
	if err := ValidateVoice(opts.Voice); err != nil {
		return Result{}, err
	}
	if err := ValidateSpeed(opts.Speed); err != nil {
		return Result{}, err
	}
	if opts.ReferencePath != "" {
		if _, err := os.Stat(opts.ReferencePath); err != nil {
			return Result{}, fmt.Errorf("reference audio: %w", err)
		}
	}

	voice := opts.Voice
	if voice == "" {
		voice = DefaultVoice
	}
	req := openai.CreateSpeechRequest{
		Model:          s.model,
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatWav,
		Speed:          opts.Speed,
	}

	audio, err := apierr.RetryWithBackoff(ctx, s.retry, func() ([]byte, error) {
		resp, err := s.client.CreateSpeech(ctx, req)
		if err != nil {
			return nil, apierr.Classify(err)
		}
		defer func() { _ = resp.Close() }()

		data, err := io.ReadAll(resp)
		if err != nil {
			// A dropped stream is worth another attempt.
			return nil, fmt.Errorf("read speech stream: %v: %w", err, apierr.ErrTimeout)
		}
		return data, nil
	}, apierr.IsRetryable)
	if err != nil {
		return Result{}, err
	}

	// #nosec G306 -- generated audio in the job work dir
	if err := os.WriteFile(outPath, audio, 0644); err != nil {
		return Result{}, fmt.Errorf("write audio: %w", err)
	}

	rate := DefaultSampleRate
	if info, err := ReadWAVInfo(bytes.NewReader(audio)); err == nil {
		rate = info.SampleRate
	}

	return Result{Path: outPath, SampleRate: rate, Bytes: int64(len(audio))}, nil
}
