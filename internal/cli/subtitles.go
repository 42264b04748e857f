package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alnah/go-narrate/internal/config"
	"github.com/alnah/go-narrate/internal/format"
	"github.com/alnah/go-narrate/internal/lang"
	"github.com/alnah/go-narrate/internal/srt"
	"github.com/alnah/go-narrate/internal/transcribe"
)

// supportedFormats lists audio formats accepted by OpenAI's transcription API.
// Source: https://platform.openai.com/docs/guides/speech-to-text
var supportedFormats = map[string]bool{
	".ogg":  true,
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".flac": true,
	".mp4":  true,
	".mpeg": true,
	".mpga": true,
	".webm": true,
}

// supportedFormatsList returns a sorted, comma-separated list for error messages.
func supportedFormatsList() string {
	formats := make([]string, 0, len(supportedFormats))
	for ext := range supportedFormats {
		formats = append(formats, strings.TrimPrefix(ext, "."))
	}
	slices.Sort(formats)
	return strings.Join(formats, ", ")
}

// clampParallel constrains parallel request count to [1, MaxRecommendedParallel].
func clampParallel(n int) int {
	if n < 1 {
		return 1
	}
	if n > transcribe.MaxRecommendedParallel {
		return transcribe.MaxRecommendedParallel
	}
	return n
}

// deriveSRTPath converts an audio file path to an SRT file name.
// Example: "narration.wav" -> "narration.srt"
func deriveSRTPath(inputPath string) string {
	base := filepath.Base(inputPath)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".srt"
}

// srtFlags holds the subtitle layout flags.
type srtFlags struct {
	maxChars    int
	startPad    float64
	endPad      float64
	minDuration float64
}

// resolve layers the flags the user actually set over the config file,
// itself layered over the defaults.
func (f srtFlags) resolve(cmd *cobra.Command, cfg config.Config) (srt.Options, error) {
	opts, err := cfg.SRTOptions()
	if err != nil {
		return srt.Options{}, err
	}
	if cmd.Flags().Changed("max-chars") {
		opts.MaxChars = f.maxChars
	}
	if cmd.Flags().Changed("start-pad") {
		opts.StartPad = f.startPad
	}
	if cmd.Flags().Changed("end-pad") {
		opts.EndPad = f.endPad
	}
	if cmd.Flags().Changed("min-duration") {
		opts.MinDuration = f.minDuration
	}
	if err := opts.Validate(); err != nil {
		return srt.Options{}, err
	}
	return opts, nil
}

// SRTCmd creates the srt command.
// The env parameter provides injectable dependencies for testing.
func SRTCmd(env *Env) *cobra.Command {
	var (
		output   string
		language string
		parallel int
		layout   srtFlags
	)

	cmd := &cobra.Command{
		Use:   "srt <audio-file>...",
		Short: "Transcribe audio files into SRT subtitles",
		Long: `Transcribe audio files with OpenAI and write paced SRT subtitles.

Each transcript segment is padded, split into sentences, and wrapped into
blocks of at most two lines. Timing and width default to the config file
and can be overridden per run.

Supported formats: ogg, mp3, wav, m4a, flac, mp4, mpeg, mpga, webm`,
		Example: `  narrate srt narration.wav
  narrate srt narration.wav -o subs/episode1.srt -l fr
  narrate srt part1.wav part2.wav --max-chars 42 --end-pad 0.3`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(env)
			opts, err := layout.resolve(cmd, cfg)
			if err != nil {
				return err
			}
			return runSRT(cmd, env, cfg, args, output, language, parallel, opts)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path (default: <input>.srt, single input only)")
	cmd.Flags().StringVarP(&language, "language", "l", "", "Audio language (ISO 639-1 code, e.g., en, fr, pt-BR)")
	cmd.Flags().IntVarP(&parallel, "parallel", "p", transcribe.MaxRecommendedParallel, "Max concurrent API requests (1-10)")
	cmd.Flags().IntVar(&layout.maxChars, "max-chars", srt.DefaultMaxChars, "Maximum characters per subtitle line")
	cmd.Flags().Float64Var(&layout.startPad, "start-pad", srt.DefaultStartPad, "Seconds shown before speech starts")
	cmd.Flags().Float64Var(&layout.endPad, "end-pad", srt.DefaultEndPad, "Seconds kept after speech ends")
	cmd.Flags().Float64Var(&layout.minDuration, "min-duration", srt.DefaultMinDuration, "Minimum seconds a segment stays on screen")

	return cmd
}

// runSRT transcribes inputs and writes one SRT file per input.
// Validation order: files exist -> format -> output -> language -> duplicate outputs -> existing outputs -> API key
func runSRT(cmd *cobra.Command, env *Env, cfg config.Config, inputs []string, output, language string, parallel int, opts srt.Options) error {
	ctx := cmd.Context()

	// === VALIDATION (fail-fast) ===

	for _, in := range inputs {
		if _, err := os.Stat(in); err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("%w: %s", ErrFileNotFound, in)
			}
			return fmt.Errorf("cannot access input file: %w", err)
		}
		ext := strings.ToLower(filepath.Ext(in))
		if !supportedFormats[ext] {
			return fmt.Errorf("unsupported format %q (supported: %s): %w",
				ext, supportedFormatsList(), ErrUnsupportedFormat)
		}
	}

	if output != "" && len(inputs) > 1 {
		return ErrOutputWithManyInputs
	}

	if language == "" {
		language = cfg.Language
	}
	if err := lang.Validate(language); err != nil {
		return err
	}

	outputs := make([]string, len(inputs))
	seen := make(map[string]string, len(inputs))
	for i, in := range inputs {
		outputs[i] = config.ResolveOutputPath(output, cfg.OutputDir, deriveSRTPath(in))
		key := filepath.Clean(outputs[i])
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("%s and %s both write %s: %w", prev, in, outputs[i], ErrDuplicateOutput)
		}
		seen[key] = in
	}
	for _, out := range outputs {
		if _, err := os.Stat(out); err == nil {
			return fmt.Errorf("output file already exists: %s: %w", out, ErrOutputExists)
		}
	}

	apiKey := env.Getenv(EnvOpenAIAPIKey)
	if apiKey == "" {
		return fmt.Errorf("%w (set it with: export %s=sk-...)", ErrAPIKeyMissing, EnvOpenAIAPIKey)
	}

	// === TRANSCRIPTION ===

	transcriber := env.TranscriberFactory.NewTranscriber(apiKey)
	fmt.Fprintf(env.Stderr, "Transcribing %d file(s)...\n", len(inputs))
	results, err := transcribe.TranscribeAll(ctx, inputs, transcriber, transcribe.Options{Language: language}, clampParallel(parallel))
	if err != nil {
		return err
	}

	// === WRITE OUTPUT ===

	for i, chunks := range results {
		blocks, err := srt.Blocks(chunks, opts)
		if err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(inputs[i]), err)
		}
		if len(blocks) == 0 {
			fmt.Fprintf(env.Stderr, "Warning: no speech found in %s\n", inputs[i])
		}
		content := srt.Serialize(blocks)
		if err := writeFileAtomic(outputs[i], content); err != nil {
			return err
		}
		span := 0.0
		if len(blocks) > 0 {
			span = blocks[len(blocks)-1].End
		}
		fmt.Fprintf(env.Stderr, "Done: %s (%d blocks, %s, %s)\n",
			outputs[i], len(blocks), format.Seconds(span), format.Size(int64(len(content))))
	}

	return nil
}
