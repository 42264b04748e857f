package cli

import (
	"context"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	amqp "github.com/rabbitmq/amqp091-go"
	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/go-narrate/internal/config"
	"github.com/alnah/go-narrate/internal/queue"
	"github.com/alnah/go-narrate/internal/speech"
	"github.com/alnah/go-narrate/internal/storage"
	"github.com/alnah/go-narrate/internal/transcribe"
)

// Environment variable names read by the CLI.
const (
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvAMQPURL      = "NARRATE_AMQP_URL"
	EnvHistory      = "NARRATE_HISTORY"
)

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing CLI commands in isolation.
//
// Env must not be nil when passed to command functions. Use DefaultEnv()
// or NewEnv() to create a valid instance.
type Env struct {
	// I/O and environment
	Stdout     io.Writer
	Stderr     io.Writer
	Getenv     func(string) string
	IsTerminal func(io.Writer) bool

	// Factories for domain objects
	ConfigLoader       ConfigLoader
	TranscriberFactory TranscriberFactory
	SynthesizerFactory SynthesizerFactory
	StoreFactory       StoreFactory
	BrokerFactory      BrokerFactory
}

// ConfigLoader loads and provides access to configuration.
type ConfigLoader interface {
	Load() (config.Config, error)
}

// TranscriberFactory creates transcribers for audio-to-text conversion.
type TranscriberFactory interface {
	NewTranscriber(apiKey string) transcribe.Transcriber
}

// SynthesizerFactory creates synthesizers for text-to-speech.
type SynthesizerFactory interface {
	NewSynthesizer(apiKey string) speech.Synthesizer
}

// StoreFactory opens the object store rooted at root.
type StoreFactory interface {
	NewStore(root string) (storage.Store, error)
}

// Broker is a message broker connection used by the worker command.
type Broker interface {
	queue.Publisher
	Deliveries() (<-chan amqp.Delivery, error)
	Close() error
}

// BrokerFactory connects to a message broker.
type BrokerFactory interface {
	Dial(ctx context.Context, url, jobQueue, resultQueue string) (Broker, error)
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStdout sets the stdout writer.
func WithStdout(w io.Writer) EnvOption {
	return func(e *Env) { e.Stdout = w }
}

// WithStderr sets the stderr writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) { e.Stderr = w }
}

// WithGetenv sets the environment variable getter.
func WithGetenv(fn func(string) string) EnvOption {
	return func(e *Env) { e.Getenv = fn }
}

// WithConfigLoader sets the config loader.
func WithConfigLoader(l ConfigLoader) EnvOption {
	return func(e *Env) { e.ConfigLoader = l }
}

// WithTranscriberFactory sets the transcriber factory.
func WithTranscriberFactory(f TranscriberFactory) EnvOption {
	return func(e *Env) { e.TranscriberFactory = f }
}

// WithSynthesizerFactory sets the synthesizer factory.
func WithSynthesizerFactory(f SynthesizerFactory) EnvOption {
	return func(e *Env) { e.SynthesizerFactory = f }
}

// WithBrokerFactory sets the broker factory.
func WithBrokerFactory(f BrokerFactory) EnvOption {
	return func(e *Env) { e.BrokerFactory = f }
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stdout:             os.Stdout,
		Stderr:             os.Stderr,
		Getenv:             os.Getenv,
		IsTerminal:         isTerminal,
		ConfigLoader:       &defaultConfigLoader{},
		TranscriberFactory: &defaultTranscriberFactory{},
		SynthesizerFactory: &defaultSynthesizerFactory{},
		StoreFactory:       &defaultStoreFactory{},
		BrokerFactory:      &defaultBrokerFactory{},
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to real packages
// ---------------------------------------------------------------------------

type defaultConfigLoader struct{}

func (defaultConfigLoader) Load() (config.Config, error) {
	return config.Load()
}

type defaultTranscriberFactory struct{}

func (defaultTranscriberFactory) NewTranscriber(apiKey string) transcribe.Transcriber {
	return transcribe.NewOpenAITranscriber(openai.NewClient(apiKey))
}

type defaultSynthesizerFactory struct{}

func (defaultSynthesizerFactory) NewSynthesizer(apiKey string) speech.Synthesizer {
	return speech.NewOpenAISynthesizer(openai.NewClient(apiKey))
}

type defaultStoreFactory struct{}

func (defaultStoreFactory) NewStore(root string) (storage.Store, error) {
	return storage.NewFileStore(root)
}

type defaultBrokerFactory struct{}

func (defaultBrokerFactory) Dial(_ context.Context, url, jobQueue, resultQueue string) (Broker, error) {
	return queue.Dial(url, jobQueue, resultQueue)
}

// Compile-time interface verification.
var (
	_ ConfigLoader       = (*defaultConfigLoader)(nil)
	_ TranscriberFactory = (*defaultTranscriberFactory)(nil)
	_ SynthesizerFactory = (*defaultSynthesizerFactory)(nil)
	_ StoreFactory       = (*defaultStoreFactory)(nil)
	_ BrokerFactory      = (*defaultBrokerFactory)(nil)
	_ Broker             = (*queue.RabbitMQ)(nil)
)
