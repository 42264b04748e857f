package cli

import (
	"context"
	"errors"
	"os"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/alnah/go-narrate/internal/config"
	"github.com/alnah/go-narrate/internal/speech"
	"github.com/alnah/go-narrate/internal/srt"
	"github.com/alnah/go-narrate/internal/transcribe"
)

// ---------------------------------------------------------------------------
// Mock ConfigLoader
// ---------------------------------------------------------------------------

type mockConfigLoader struct {
	cfg config.Config
	err error
}

func (m *mockConfigLoader) Load() (config.Config, error) {
	return m.cfg, m.err
}

// ---------------------------------------------------------------------------
// Mock TranscriberFactory + Transcriber
// ---------------------------------------------------------------------------

type mockTranscriberFactory struct {
	transcriber *mockTranscriber

	mu      sync.Mutex
	apiKeys []string
}

func (f *mockTranscriberFactory) NewTranscriber(apiKey string) transcribe.Transcriber {
	f.mu.Lock()
	f.apiKeys = append(f.apiKeys, apiKey)
	f.mu.Unlock()
	return f.transcriber
}

func (f *mockTranscriberFactory) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.apiKeys)
}

type mockTranscriber struct {
	chunks []srt.Chunk
	err    error

	mu    sync.Mutex
	paths []string
	opts  []transcribe.Options
}

func (m *mockTranscriber) Transcribe(_ context.Context, audioPath string, opts transcribe.Options) ([]srt.Chunk, error) {
	m.mu.Lock()
	m.paths = append(m.paths, audioPath)
	m.opts = append(m.opts, opts)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.chunks, nil
}

// ---------------------------------------------------------------------------
// Mock SynthesizerFactory + Synthesizer
// ---------------------------------------------------------------------------

type mockSynthesizerFactory struct {
	synthesizer *mockSynthesizer
}

func (f *mockSynthesizerFactory) NewSynthesizer(string) speech.Synthesizer {
	return f.synthesizer
}

type mockSynthesizer struct {
	err error

	mu    sync.Mutex
	texts []string
	opts  []speech.Options
}

func (m *mockSynthesizer) Synthesize(_ context.Context, text, outPath string, opts speech.Options) (speech.Result, error) {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.opts = append(m.opts, opts)
	m.mu.Unlock()
	if m.err != nil {
		return speech.Result{}, m.err
	}
	if err := os.WriteFile(outPath, []byte("RIFF"+text), 0600); err != nil {
		return speech.Result{}, err
	}
	return speech.Result{Path: outPath, SampleRate: speech.DefaultSampleRate}, nil
}

// ---------------------------------------------------------------------------
// Mock BrokerFactory + Broker
// ---------------------------------------------------------------------------

type mockBrokerFactory struct {
	broker  *mockBroker
	dialErr error
	url     string
}

func (f *mockBrokerFactory) Dial(_ context.Context, url, _, _ string) (Broker, error) {
	f.url = url
	if f.dialErr != nil {
		return nil, f.dialErr
	}
	return f.broker, nil
}

type publishedMsg struct {
	queue string
	msg   amqp.Publishing
}

type mockBroker struct {
	deliveries chan amqp.Delivery

	mu        sync.Mutex
	published []publishedMsg
	closed    bool
}

func (b *mockBroker) Publish(_ context.Context, q string, msg amqp.Publishing) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, publishedMsg{q, msg})
	return nil
}

func (b *mockBroker) Deliveries() (<-chan amqp.Delivery, error) {
	if b.deliveries == nil {
		return nil, errors.New("consume refused")
	}
	return b.deliveries, nil
}

func (b *mockBroker) Close() error {
	b.closed = true
	return nil
}

// mockAck satisfies amqp.Acknowledger.
type mockAck struct {
	acked int
}

func (m *mockAck) Ack(uint64, bool) error        { m.acked++; return nil }
func (m *mockAck) Nack(uint64, bool, bool) error { return nil }
func (m *mockAck) Reject(uint64, bool) error     { return nil }

var (
	_ ConfigLoader       = (*mockConfigLoader)(nil)
	_ TranscriberFactory = (*mockTranscriberFactory)(nil)
	_ SynthesizerFactory = (*mockSynthesizerFactory)(nil)
	_ BrokerFactory      = (*mockBrokerFactory)(nil)
	_ Broker             = (*mockBroker)(nil)
)
