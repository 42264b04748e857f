// Package job runs narration batches: each prompt is synthesized,
// uploaded, and optionally transcribed into an uploaded SRT file.
package job

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-narrate/internal/config"
	"github.com/alnah/go-narrate/internal/metrics"
	"github.com/alnah/go-narrate/internal/speech"
	"github.com/alnah/go-narrate/internal/srt"
	"github.com/alnah/go-narrate/internal/storage"
	"github.com/alnah/go-narrate/internal/transcribe"
)

// Object key prefixes.
const (
	AudioPrefix = "video_gen/tts/"
	SRTPrefix   = "video_gen/srt/"
)

// DefaultParallelism processes prompts one at a time, in order.
const DefaultParallelism = 1

// EnvLoader returns the variables of a named environment (stag, prod).
type EnvLoader func(name string) (map[string]string, error)

// Runner executes job requests. It is safe for concurrent use.
type Runner struct {
	synth     speech.Synthesizer
	trans     transcribe.Transcriber
	store     storage.Store
	srtOpts   srt.Options
	bucket    string
	envLoader EnvLoader
	workRoot  string
	parallel  int
	voice     string
	language  string
	speed     float64
	logger    *slog.Logger
	metrics   *metrics.Metrics
	recorder  Recorder
	source    string
}

// Record describes one finished job for a Recorder.
type Record struct {
	Source  string
	Request Request
	Result  Result
	Started time.Time
	Elapsed time.Duration
}

// Recorder persists finished jobs.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithBucket sets the bucket used when the environment names none.
func WithBucket(bucket string) RunnerOption {
	return func(r *Runner) { r.bucket = bucket }
}

// WithSRTOptions sets subtitle timing and width.
func WithSRTOptions(opts srt.Options) RunnerOption {
	return func(r *Runner) { r.srtOpts = opts }
}

// WithEnvLoader sets how stag/prod environments are resolved.
func WithEnvLoader(l EnvLoader) RunnerOption {
	return func(r *Runner) { r.envLoader = l }
}

// WithWorkRoot sets the parent of per-job work directories.
func WithWorkRoot(dir string) RunnerOption {
	return func(r *Runner) { r.workRoot = dir }
}

// WithParallelism bounds how many prompts run at once. Values below 1 are ignored.
func WithParallelism(n int) RunnerOption {
	return func(r *Runner) {
		if n >= 1 {
			r.parallel = n
		}
	}
}

// WithDefaults sets the voice and language used when a request omits them.
func WithDefaults(voice, language string) RunnerOption {
	return func(r *Runner) {
		r.voice = voice
		r.language = language
	}
}

// WithSpeed sets the speaking rate passed to the synthesizer. Zero keeps
// the model default.
func WithSpeed(speed float64) RunnerOption {
	return func(r *Runner) { r.speed = speed }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

// WithRecorder persists every finished job, tagged with source
// (generate, run, serve, worker).
func WithRecorder(rec Recorder, source string) RunnerOption {
	return func(r *Runner) {
		r.recorder = rec
		r.source = source
	}
}

// NewRunner creates a Runner. trans may be nil when no request asks for subtitles.
func NewRunner(synth speech.Synthesizer, trans transcribe.Transcriber, store storage.Store, opts ...RunnerOption) *Runner {
	r := &Runner{
		synth:    synth,
		trans:    trans,
		store:    store,
		srtOpts:  srt.DefaultOptions(),
		workRoot: os.TempDir(),
		parallel: DefaultParallelism,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes req. Failures are reported in Result.Error, never returned.
func (r *Runner) Run(ctx context.Context, req Request) Result {
	started := time.Now()
	items, err := r.run(ctx, req)
	r.metrics.RecordJob(err == nil)

	var res Result
	if err != nil {
		r.logger.Error("batch narration failed",
			slog.Int("prompts", len(req.Prompts)),
			slog.String("error", err.Error()),
		)
		res = ErrorResult(err)
	} else {
		r.logger.Info("batch narration done",
			slog.Int("count", len(items)),
			slog.Duration("elapsed", time.Since(started)),
		)
		res = Result{Count: len(items), Results: items}
	}

	r.record(ctx, req, res, started)
	return res
}

// record hands the finished job to the recorder. A recording failure is
// logged and never changes the result.
func (r *Runner) record(ctx context.Context, req Request, res Result, started time.Time) {
	if r.recorder == nil {
		return
	}
	rec := Record{
		Source:  r.source,
		Request: req,
		Result:  res,
		Started: started,
		Elapsed: time.Since(started),
	}
	// The job may have been canceled; its record still belongs in history.
	if err := r.recorder.Record(context.WithoutCancel(ctx), rec); err != nil {
		r.logger.Warn("cannot record job", slog.String("error", err.Error()))
	}
}

// plan is the resolved per-job state shared by prompt workers.
type plan struct {
	req     Request
	bucket  string
	workDir string
	refPath string
	voice   string
	srtOpts srt.Options
}

func (r *Runner) run(ctx context.Context, req Request) ([]Item, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.GenerateSRT && r.trans == nil {
		return nil, ErrNoTranscriber
	}

	envName, vars := r.environment(req)
	bucket := vars[config.EnvBucket]
	if bucket == "" {
		bucket = r.bucket
	}
	if bucket == "" {
		return nil, ErrNoBucket
	}
	r.logger.Info("starting batch narration",
		slog.String("environment", envName),
		slog.String("bucket", bucket),
		slog.Int("prompts", len(req.Prompts)),
		slog.Bool("srt", req.GenerateSRT),
	)

	workDir := filepath.Join(r.workRoot, uuid.NewString())
	if err := os.MkdirAll(workDir, 0750); err != nil { // #nosec G301 -- private work dir
		return nil, fmt.Errorf("cannot create work directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			r.logger.Warn("cannot remove work directory", slog.String("path", workDir), slog.String("error", err.Error()))
		}
	}()

	p := plan{
		req:     req,
		bucket:  bucket,
		workDir: workDir,
		voice:   req.Voice,
		srtOpts: r.srtOpts,
	}
	if p.voice == "" {
		p.voice = r.voice
	}
	if req.MaxChars > 0 {
		p.srtOpts.MaxChars = req.MaxChars
	}
	if err := p.srtOpts.Validate(); err != nil {
		return nil, err
	}

	if req.RefAudio != "" {
		p.refPath = filepath.Join(workDir, "ref.wav")
		if err := r.store.Download(ctx, req.RefAudio, p.refPath); err != nil {
			return nil, fmt.Errorf("reference audio: %w", err)
		}
	}

	items := make([]Item, len(req.Prompts))
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, r.parallel)

	for i, prompt := range req.Prompts {
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-gctx.Done():
				return gctx.Err()
			}

			item, err := r.prompt(gctx, p, i, prompt)
			if err != nil {
				return fmt.Errorf("prompt %d: %w", i, err)
			}
			items[i] = item
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

// environment picks stag or prod from the request level, else from the
// reference audio bucket. Any failure falls back to the default environment.
func (r *Runner) environment(req Request) (string, map[string]string) {
	name := config.DefaultEnvironment
	switch {
	case req.Level != "":
		name = req.Level
	case req.RefAudio != "":
		if loc, err := storage.ParseURI(req.RefAudio); err == nil {
			name = config.ClassifyEnv(loc.Bucket)
		}
	}

	if r.envLoader == nil {
		return name, nil
	}

	vars, err := r.envLoader(name)
	if err == nil {
		return name, vars
	}
	r.logger.Warn("environment unavailable, using default",
		slog.String("environment", name),
		slog.String("error", err.Error()),
	)

	vars, err = r.envLoader(config.DefaultEnvironment)
	if err != nil {
		r.logger.Warn("default environment unavailable",
			slog.String("environment", config.DefaultEnvironment),
			slog.String("error", err.Error()),
		)
		return config.DefaultEnvironment, nil
	}
	return config.DefaultEnvironment, vars
}

// prompt synthesizes one prompt and uploads its artifacts. Local files are
// removed before returning.
func (r *Runner) prompt(ctx context.Context, p plan, idx int, text string) (Item, error) {
	r.logger.Info("generating audio",
		slog.Int("prompt", idx+1),
		slog.Int("of", len(p.req.Prompts)),
	)

	audioFile := filepath.Join(p.workDir, fmt.Sprintf("tts_%d.wav", idx))
	defer func() { _ = os.Remove(audioFile) }()

	started := time.Now()
	res, err := r.synth.Synthesize(ctx, text, audioFile, speech.Options{
		Voice:         p.voice,
		Speed:         r.speed,
		ReferencePath: p.refPath,
	})
	if err != nil {
		return Item{}, err
	}
	r.metrics.RecordPrompt(time.Since(started).Seconds())

	audioURI, err := r.store.Upload(ctx, audioFile, p.bucket, AudioPrefix+uuid.NewString()+".wav")
	if err != nil {
		return Item{}, err
	}

	item := Item{
		PromptIndex: idx,
		AudioPath:   audioURI,
		SampleRate:  res.SampleRate,
	}
	if !p.req.GenerateSRT {
		return item, nil
	}

	srtURI, blocks, err := r.subtitles(ctx, p, idx, text, audioFile)
	if err != nil {
		return Item{}, err
	}
	item.SRTPath = &srtURI
	item.SubtitleBlocks = blocks
	return item, nil
}

// subtitles transcribes audioFile, hinting the model with the narrated
// text, and uploads the rendered SRT.
func (r *Runner) subtitles(ctx context.Context, p plan, idx int, text, audioFile string) (string, int, error) {
	r.logger.Info("generating subtitles", slog.Int("prompt", idx+1))

	language := p.req.Language
	if language == "" {
		language = r.language
	}

	started := time.Now()
	chunks, err := r.trans.Transcribe(ctx, audioFile, transcribe.Options{
		Language: language,
		Prompt:   text,
	})
	if err != nil {
		return "", 0, err
	}

	blocks, err := srt.Blocks(chunks, p.srtOpts)
	if err != nil {
		return "", 0, err
	}
	r.metrics.RecordSubtitles(time.Since(started).Seconds(), len(blocks))

	srtFile := filepath.Join(p.workDir, fmt.Sprintf("tts_%d.srt", idx))
	defer func() { _ = os.Remove(srtFile) }()

	if err := os.WriteFile(srtFile, []byte(srt.Serialize(blocks)), 0600); err != nil {
		return "", 0, fmt.Errorf("cannot write subtitles: %w", err)
	}

	uri, err := r.store.Upload(ctx, srtFile, p.bucket, SRTPrefix+uuid.NewString()+".srt")
	if err != nil {
		return "", 0, err
	}
	return uri, len(blocks), nil
}
