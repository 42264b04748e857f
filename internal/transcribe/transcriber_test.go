package transcribe_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/go-narrate/internal/apierr"
	"github.com/alnah/go-narrate/internal/lang"
	"github.com/alnah/go-narrate/internal/srt"
	"github.com/alnah/go-narrate/internal/transcribe"
)

// Notes:
// - Black-box testing via package transcribe_test.
// - export_test.go injects a mock in place of *openai.Client.
// - Responses are built from JSON because AudioResponse uses anonymous structs.
// - Retry delays are 1ms; parallelism is checked with channels, not sleeps.

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockAudioTranscriber struct {
	mu        sync.Mutex
	calls     []openai.AudioRequest
	responses []openai.AudioResponse
	errors    []error
}

func (m *mockAudioTranscriber) CreateTranscription(_ context.Context, req openai.AudioRequest) (openai.AudioResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := len(m.calls)
	m.calls = append(m.calls, req)

	if idx < len(m.errors) && m.errors[idx] != nil {
		return openai.AudioResponse{}, m.errors[idx]
	}
	if idx < len(m.responses) {
		return m.responses[idx], nil
	}
	return openai.AudioResponse{}, nil
}

func (m *mockAudioTranscriber) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func verboseResponse(t *testing.T, body string) openai.AudioResponse {
	t.Helper()
	var resp openai.AudioResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("invalid response fixture: %v", err)
	}
	return resp
}

func fastRetry() transcribe.TranscriberOption {
	return transcribe.WithRetryDelays(time.Millisecond, time.Millisecond)
}

// ---------------------------------------------------------------------------
// TestTranscribe
// ---------------------------------------------------------------------------

func TestTranscribe_SegmentsBecomeChunks(t *testing.T) {
	t.Parallel()

	mock := &mockAudioTranscriber{responses: []openai.AudioResponse{verboseResponse(t, `{
		"text": "Hello there. General Kenobi.",
		"duration": 3.2,
		"segments": [
			{"id": 0, "start": 0.0, "end": 1.4, "text": " Hello there."},
			{"id": 1, "start": 1.6, "end": 3.1, "text": " General Kenobi."}
		]
	}`)}}
	tr := transcribe.NewTestTranscriber(mock, fastRetry())

	got, err := tr.Transcribe(context.Background(), "speech.wav", transcribe.Options{Language: "en-US", Prompt: "Hello there"})
	if err != nil {
		t.Fatalf("Transcribe() unexpected error: %v", err)
	}

	want := []srt.Chunk{
		{Text: " Hello there.", Interval: srt.Interval{Start: 0, End: 1.4}},
		{Text: " General Kenobi.", Interval: srt.Interval{Start: 1.6, End: 3.1}},
	}
	if !slices.Equal(got, want) {
		t.Errorf("Transcribe() = %+v, want %+v", got, want)
	}

	req := mock.calls[0]
	if req.Model != openai.Whisper1 {
		t.Errorf("Model = %q, want %q", req.Model, openai.Whisper1)
	}
	if req.Format != openai.AudioResponseFormatVerboseJSON {
		t.Errorf("Format = %q, want verbose_json", req.Format)
	}
	if req.Language != "en" {
		t.Errorf("Language = %q, want base code en", req.Language)
	}
	if req.FilePath != "speech.wav" || req.Prompt != "Hello there" {
		t.Errorf("request = %+v", req)
	}
	if !slices.Contains(req.TimestampGranularities, openai.TranscriptionTimestampGranularitySegment) {
		t.Errorf("TimestampGranularities = %v, want segment", req.TimestampGranularities)
	}
}

func TestTranscribe_TextWithoutSegments(t *testing.T) {
	t.Parallel()

	mock := &mockAudioTranscriber{responses: []openai.AudioResponse{
		verboseResponse(t, `{"text": "Just text.", "duration": 2.5}`),
	}}
	got, err := transcribe.NewTestTranscriber(mock).Transcribe(context.Background(), "a.wav", transcribe.Options{})
	if err != nil {
		t.Fatalf("Transcribe() unexpected error: %v", err)
	}

	want := []srt.Chunk{{Text: "Just text.", Interval: srt.Interval{Start: 0, End: 2.5}}}
	if !slices.Equal(got, want) {
		t.Errorf("Transcribe() = %+v, want %+v", got, want)
	}
}

func TestTranscribe_Silence(t *testing.T) {
	t.Parallel()

	mock := &mockAudioTranscriber{}
	got, err := transcribe.NewTestTranscriber(mock).Transcribe(context.Background(), "a.wav", transcribe.Options{})
	if err != nil {
		t.Fatalf("Transcribe() unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Transcribe() = %+v, want no chunks", got)
	}
}

func TestTranscribe_InvalidLanguage(t *testing.T) {
	t.Parallel()

	mock := &mockAudioTranscriber{}
	_, err := transcribe.NewTestTranscriber(mock).Transcribe(context.Background(), "a.wav", transcribe.Options{Language: "klingon"})
	if !errors.Is(err, lang.ErrInvalid) {
		t.Fatalf("error = %v, want lang.ErrInvalid", err)
	}
	if mock.callCount() != 0 {
		t.Errorf("API called %d times, want 0", mock.callCount())
	}
}

func TestTranscribe_Retries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		errs      []error
		wantCalls int
		wantErr   error
	}{
		{
			name:      "rate limit then success",
			errs:      []error{&openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Message: "slow down"}},
			wantCalls: 2,
		},
		{
			name:      "server error then success",
			errs:      []error{&openai.APIError{HTTPStatusCode: http.StatusBadGateway}},
			wantCalls: 2,
		},
		{
			name:      "auth failure is final",
			errs:      []error{&openai.APIError{HTTPStatusCode: http.StatusUnauthorized, Message: "bad key"}},
			wantCalls: 1,
			wantErr:   apierr.ErrAuthFailed,
		},
		{
			name:      "quota is final",
			errs:      []error{&openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Message: "insufficient quota"}},
			wantCalls: 1,
			wantErr:   apierr.ErrQuotaExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mock := &mockAudioTranscriber{
				errors:    tt.errs,
				responses: []openai.AudioResponse{{}, verboseResponse(t, `{"text": "ok", "duration": 1}`)},
			}
			tr := transcribe.NewTestTranscriber(mock, fastRetry(), transcribe.WithMaxRetries(3))

			_, err := tr.Transcribe(context.Background(), "a.wav", transcribe.Options{})
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Transcribe() unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if got := mock.callCount(); got != tt.wantCalls {
				t.Errorf("calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestTranscribeAll
// ---------------------------------------------------------------------------

type stubTranscriber struct {
	results  map[string][]srt.Chunk
	fail     map[string]error
	inFlight atomic.Int32
	peak     atomic.Int32
	gate     chan struct{}
}

func (s *stubTranscriber) Transcribe(ctx context.Context, path string, _ transcribe.Options) ([]srt.Chunk, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := s.fail[path]; err != nil {
		return nil, err
	}
	return s.results[path], nil
}

func TestTranscribeAll_PreservesOrder(t *testing.T) {
	t.Parallel()

	stub := &stubTranscriber{results: map[string][]srt.Chunk{
		"a.wav": {{Text: "a"}},
		"b.wav": {{Text: "b"}},
		"c.wav": {{Text: "c"}},
	}}

	got, err := transcribe.TranscribeAll(context.Background(), []string{"c.wav", "a.wav", "b.wav"}, stub, transcribe.Options{}, 3)
	if err != nil {
		t.Fatalf("TranscribeAll() unexpected error: %v", err)
	}
	for i, want := range []string{"c", "a", "b"} {
		if len(got[i]) != 1 || got[i][0].Text != want {
			t.Errorf("result %d = %+v, want %q", i, got[i], want)
		}
	}
}

func TestTranscribeAll_RespectsParallelLimit(t *testing.T) {
	t.Parallel()

	stub := &stubTranscriber{gate: make(chan struct{})}
	paths := []string{"1.wav", "2.wav", "3.wav", "4.wav", "5.wav"}

	done := make(chan error, 1)
	go func() {
		_, err := transcribe.TranscribeAll(context.Background(), paths, stub, transcribe.Options{}, 2)
		done <- err
	}()

	for range paths {
		stub.gate <- struct{}{}
	}
	if err := <-done; err != nil {
		t.Fatalf("TranscribeAll() unexpected error: %v", err)
	}
	if peak := stub.peak.Load(); peak > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak)
	}
}

func TestTranscribeAll_FailureNamesFile(t *testing.T) {
	t.Parallel()

	stub := &stubTranscriber{fail: map[string]error{"bad.wav": apierr.ErrAuthFailed}}

	_, err := transcribe.TranscribeAll(context.Background(), []string{"ok.wav", "bad.wav"}, stub, transcribe.Options{}, 1)
	if !errors.Is(err, apierr.ErrAuthFailed) {
		t.Fatalf("error = %v, want ErrAuthFailed", err)
	}
	if want := "bad.wav"; !strings.Contains(err.Error(), want) {
		t.Errorf("error %q does not name %q", err, want)
	}
}

func TestTranscribeAll_Empty(t *testing.T) {
	t.Parallel()

	got, err := transcribe.TranscribeAll(context.Background(), nil, &stubTranscriber{}, transcribe.Options{}, 0)
	if err != nil || got != nil {
		t.Errorf("TranscribeAll(nil) = %v, %v; want nil, nil", got, err)
	}
}
