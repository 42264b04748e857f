package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"

	"github.com/alnah/go-narrate/internal/config"
	"github.com/alnah/go-narrate/internal/history"
	"github.com/alnah/go-narrate/internal/job"
	"github.com/alnah/go-narrate/internal/metrics"
	"github.com/alnah/go-narrate/internal/speech"
	"github.com/alnah/go-narrate/internal/storage"
	"github.com/alnah/go-narrate/internal/transcribe"
)

// Defaults for local job runs.
const (
	DefaultStoreRoot = "narrate-store"
	DefaultBucket    = "local"
)

// runnerFlags are shared by generate, run, serve and worker.
type runnerFlags struct {
	storeRoot string
	bucket    string
	envDir    string
	history   string
	parallel  int
	speed     float64
}

func (f *runnerFlags) register(fs *pflag.FlagSet, withEnvDir bool) {
	fs.StringVar(&f.storeRoot, "store-root", "", "Object store directory (default: <output-dir>/"+DefaultStoreRoot+")")
	fs.StringVar(&f.bucket, "bucket", "", "Output bucket (default: config bucket, then "+DefaultBucket+")")
	fs.IntVar(&f.parallel, "parallel", job.DefaultParallelism, "Prompts processed at once")
	fs.Float64Var(&f.speed, "speed", 0, fmt.Sprintf("Speaking rate, %g to %g (default: model default)", speech.MinSpeed, speech.MaxSpeed))
	fs.StringVar(&f.history, "history", "", "SQLite job history file (env: "+EnvHistory+")")
	if withEnvDir {
		fs.StringVar(&f.envDir, "env-dir", ".", "Directory holding stag.env and prod.env")
	}
}

// runnerSetup is what a command needs to build a job.Runner.
type runnerSetup struct {
	source     string
	flags      runnerFlags
	withSRT    bool
	withEnvDir bool
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// builtRunner is a runner with the resources it holds open.
type builtRunner struct {
	runner  *job.Runner
	store   storage.Store
	bucket  string
	history *history.Store
}

// Close releases the history database, if any.
func (b *builtRunner) Close() error {
	return b.history.Close()
}

// buildRunner resolves config, API key, store and history, then creates
// the runner. Callers must Close the result.
func buildRunner(env *Env, s runnerSetup) (*builtRunner, error) {
	cfg := loadConfig(env)

	srtOpts, err := cfg.SRTOptions()
	if err != nil {
		return nil, err
	}
	if err := speech.ValidateSpeed(s.flags.speed); err != nil {
		return nil, err
	}

	apiKey := env.Getenv(EnvOpenAIAPIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w (set it with: export %s=sk-...)", ErrAPIKeyMissing, EnvOpenAIAPIKey)
	}

	root := s.flags.storeRoot
	if root == "" {
		root = cfg.StoreRoot
	}
	if root == "" {
		root = config.ResolveOutputPath("", cfg.OutputDir, DefaultStoreRoot)
	}
	store, err := env.StoreFactory.NewStore(config.ExpandPath(root))
	if err != nil {
		return nil, err
	}

	bucket := firstNonEmpty(s.flags.bucket, cfg.Bucket, DefaultBucket)

	opts := []job.RunnerOption{
		job.WithBucket(bucket),
		job.WithSRTOptions(srtOpts),
		job.WithParallelism(s.flags.parallel),
		job.WithDefaults(cfg.Voice, cfg.Language),
		job.WithSpeed(s.flags.speed),
		job.WithLogger(s.logger),
		job.WithMetrics(s.metrics),
	}
	if s.withEnvDir {
		dir := s.flags.envDir
		opts = append(opts, job.WithEnvLoader(func(name string) (map[string]string, error) {
			return config.LoadEnvironment(name, dir)
		}))
	}

	var hist *history.Store
	if p := firstNonEmpty(s.flags.history, env.Getenv(EnvHistory)); p != "" {
		hist, err = history.Open(config.ExpandPath(p))
		if err != nil {
			return nil, err
		}
		opts = append(opts, job.WithRecorder(hist, s.source))
	}

	var trans transcribe.Transcriber
	if s.withSRT {
		trans = env.TranscriberFactory.NewTranscriber(apiKey)
	}
	runner := job.NewRunner(env.SynthesizerFactory.NewSynthesizer(apiKey), trans, store, opts...)
	return &builtRunner{runner: runner, store: store, bucket: bucket, history: hist}, nil
}

// loadConfig loads the config file, warning and continuing on failure.
func loadConfig(env *Env) config.Config {
	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		fmt.Fprintf(env.Stderr, "Warning: failed to load config: %v\n", err)
	}
	return cfg
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
