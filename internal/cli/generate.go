package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alnah/go-narrate/internal/job"
	"github.com/alnah/go-narrate/internal/lang"
	"github.com/alnah/go-narrate/internal/speech"
)

// refBucket holds reference samples uploaded from local paths.
const refBucket = "refs"

// generateOptions holds the generate flags.
type generateOptions struct {
	prompts  []string
	srt      bool
	voice    string
	refAudio string
	language string
	maxChars int
	json     bool
	runner   runnerFlags
}

// GenerateCmd creates the generate command.
// The env parameter provides injectable dependencies for testing.
func GenerateCmd(env *Env) *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Narrate prompts into audio and optional subtitles",
		Long: `Narrate one or more prompts with OpenAI text-to-speech.

Each prompt becomes a WAV file in the local object store. With --srt the
audio is transcribed back and paced SRT subtitles are stored beside it.

A result table is printed on a terminal; JSON otherwise or with --json.`,
		Example: `  narrate generate -p "Welcome to the course."
  narrate generate -p "First line." -p "Second line." --srt --voice nova
  narrate generate -p "Bonjour." --srt -l fr --ref-audio voice.wav --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), env, opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.prompts, "prompt", "p", nil, "Text to narrate (repeatable)")
	cmd.Flags().BoolVar(&opts.srt, "srt", false, "Also generate SRT subtitles")
	cmd.Flags().StringVar(&opts.voice, "voice", "", "Voice: "+strings.Join(speech.Voices, ", "))
	cmd.Flags().StringVar(&opts.refAudio, "ref-audio", "", "Reference voice sample (local file or store URI)")
	cmd.Flags().StringVarP(&opts.language, "language", "l", "", "Narration language for subtitles (ISO 639-1)")
	cmd.Flags().IntVar(&opts.maxChars, "max-chars", 0, "Maximum characters per subtitle line (default: config)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print JSON even on a terminal")
	opts.runner.register(cmd.Flags(), false)
	_ = cmd.MarkFlagRequired("prompt")

	return cmd
}

// runGenerate runs a job locally against the file store.
// Validation order: voice -> language -> max-chars -> config/API key/store
func runGenerate(ctx context.Context, env *Env, opts generateOptions) error {
	// === VALIDATION (fail-fast) ===

	if err := speech.ValidateVoice(opts.voice); err != nil {
		return err
	}
	if err := lang.Validate(opts.language); err != nil {
		return err
	}
	if opts.maxChars < 0 {
		return fmt.Errorf("--max-chars must be positive: %w", job.ErrInvalidRequest)
	}

	built, err := buildRunner(env, runnerSetup{source: "generate", flags: opts.runner, withSRT: opts.srt})
	if err != nil {
		return err
	}
	defer func() { _ = built.Close() }()

	// === REFERENCE AUDIO ===

	refURI := opts.refAudio
	if refURI != "" && !strings.Contains(refURI, "://") {
		if _, err := os.Stat(refURI); err != nil {
			return fmt.Errorf("%w: %s", ErrFileNotFound, refURI)
		}
		refURI, err = built.store.Upload(ctx, refURI, refBucket, filepath.Base(refURI))
		if err != nil {
			return err
		}
	}

	// === JOB ===

	fmt.Fprintf(env.Stderr, "Narrating %d prompt(s) into bucket %s...\n", len(opts.prompts), built.bucket)
	res := built.runner.Run(ctx, job.Request{
		Prompts:     opts.prompts,
		RefAudio:    refURI,
		GenerateSRT: opts.srt,
		Language:    opts.language,
		Voice:       opts.voice,
		MaxChars:    opts.maxChars,
	})
	if res.Failed() {
		return fmt.Errorf("%w: %s", ErrJobFailed, res.Error)
	}

	fmt.Fprintf(env.Stderr, "Done: %d file(s)\n", res.Count)
	return printResult(env, res, opts.json)
}
