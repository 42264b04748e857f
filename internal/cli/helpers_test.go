package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/cobra"

	"github.com/alnah/go-narrate/internal/srt"
)

// ---------------------------------------------------------------------------
// syncBuffer - thread-safe bytes.Buffer for concurrent test output
// ---------------------------------------------------------------------------

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

var _ io.Writer = (*syncBuffer)(nil)

// ---------------------------------------------------------------------------
// testMocks - convenience struct for grouping all mocks
// ---------------------------------------------------------------------------

type testMocks struct {
	configLoader *mockConfigLoader
	transcriber  *mockTranscriberFactory
	synthesizer  *mockSynthesizerFactory
	broker       *mockBrokerFactory
}

func newTestMocks() *testMocks {
	return &testMocks{
		configLoader: &mockConfigLoader{},
		transcriber:  &mockTranscriberFactory{transcriber: &mockTranscriber{chunks: sampleChunks()}},
		synthesizer:  &mockSynthesizerFactory{synthesizer: &mockSynthesizer{}},
		broker:       &mockBrokerFactory{},
	}
}

// ---------------------------------------------------------------------------
// testEnv - creates a fully mocked Env for testing
// ---------------------------------------------------------------------------

type testEnvOptions struct {
	getenv   func(string) string
	terminal bool
	mocks    *testMocks
}

type testEnvOption func(*testEnvOptions)

func withEnvVars(vars map[string]string) testEnvOption {
	return func(o *testEnvOptions) {
		o.getenv = func(k string) string { return vars[k] }
	}
}

func withTerminal() testEnvOption {
	return func(o *testEnvOptions) { o.terminal = true }
}

// testEnv creates an Env with mocked collaborators and a real file store.
// Returns the Env, its stdout and stderr buffers, and the mocks.
func testEnv(opts ...testEnvOption) (*Env, *syncBuffer, *syncBuffer, *testMocks) {
	options := &testEnvOptions{
		getenv: defaultTestEnv,
		mocks:  newTestMocks(),
	}
	for _, opt := range opts {
		opt(options)
	}

	stdout, stderr := &syncBuffer{}, &syncBuffer{}
	env := &Env{
		Stdout:             stdout,
		Stderr:             stderr,
		Getenv:             options.getenv,
		IsTerminal:         func(io.Writer) bool { return options.terminal },
		ConfigLoader:       options.mocks.configLoader,
		TranscriberFactory: options.mocks.transcriber,
		SynthesizerFactory: options.mocks.synthesizer,
		StoreFactory:       defaultStoreFactory{},
		BrokerFactory:      options.mocks.broker,
	}
	return env, stdout, stderr, options.mocks
}

func defaultTestEnv(key string) string {
	if key == EnvOpenAIAPIKey {
		return "sk-test"
	}
	return ""
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// execute runs cmd with args the way main does.
func execute(cmd *cobra.Command, args ...string) error {
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return cmd.ExecuteContext(context.Background())
}

// writeTestFile creates a file with content under dir and returns its path.
func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return p
}

// sampleChunks is one segment that renders as two blocks at default width.
func sampleChunks() []srt.Chunk {
	return []srt.Chunk{{
		Text:     "Hi there. This is a test sentence that is fairly long.",
		Interval: srt.Interval{Start: 0, End: 3},
	}}
}
