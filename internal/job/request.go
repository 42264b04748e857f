package job

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alnah/go-narrate/internal/lang"
	"github.com/alnah/go-narrate/internal/speech"
)

// Request is the input of a narration job.
type Request struct {
	Prompts     []string `json:"prompts" yaml:"prompts" toml:"prompts"`
	RefAudio    string   `json:"ref_audio,omitempty" yaml:"ref_audio" toml:"ref_audio"`
	GenerateSRT bool     `json:"generate_srt,omitempty" yaml:"generate_srt" toml:"generate_srt"`
	Level       string   `json:"level,omitempty" yaml:"level" toml:"level"`
	Language    string   `json:"language,omitempty" yaml:"language" toml:"language"`
	Voice       string   `json:"voice,omitempty" yaml:"voice" toml:"voice"`
	MaxChars    int      `json:"max_chars,omitempty" yaml:"max_chars" toml:"max_chars"`
}

// Event wraps a Request the way job events arrive over HTTP and the queue.
type Event struct {
	Input *Request `json:"input" yaml:"input" toml:"input"`
}

// Validate rejects requests the runner cannot start.
func (r Request) Validate() error {
	if len(r.Prompts) == 0 {
		return fmt.Errorf("prompts is required: %w", ErrInvalidRequest)
	}
	if err := speech.ValidateVoice(r.Voice); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if r.Language != "" {
		if err := lang.Validate(r.Language); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
	}
	if r.MaxChars < 0 {
		return fmt.Errorf("max_chars must be positive, got %d: %w", r.MaxChars, ErrInvalidRequest)
	}
	return nil
}

// DecodeEvent decodes {"input": Request}, or a bare Request when the
// input wrapper is absent.
func DecodeEvent(data []byte) (Request, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Request{}, fmt.Errorf("decode event: %w: %w", ErrInvalidRequest, err)
	}
	if ev.Input != nil {
		return *ev.Input, nil
	}

	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("decode request: %w: %w", ErrInvalidRequest, err)
	}
	return req, nil
}

// Item describes one synthesized prompt.
type Item struct {
	PromptIndex    int     `json:"prompt_index"`
	AudioPath      string  `json:"audio_path"`
	SRTPath        *string `json:"srt_path"`
	SampleRate     int     `json:"sample_rate"`
	SubtitleBlocks int     `json:"subtitle_blocks"`
}

// Result is the job output: either count and results, or error alone.
type Result struct {
	Count   int    `json:"count,omitempty"`
	Results []Item `json:"results,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Failed reports whether the job ended with an error.
func (r Result) Failed() bool {
	return r.Error != ""
}

// ErrorResult converts err into a failed Result.
func ErrorResult(err error) Result {
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		msg = "job failed"
	}
	return Result{Error: msg}
}
