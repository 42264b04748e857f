package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/alnah/go-narrate/internal/apierr"
	"github.com/alnah/go-narrate/internal/cli"
	"github.com/alnah/go-narrate/internal/config"
	"github.com/alnah/go-narrate/internal/interrupt"
	"github.com/alnah/go-narrate/internal/job"
	"github.com/alnah/go-narrate/internal/lang"
	"github.com/alnah/go-narrate/internal/speech"
	"github.com/alnah/go-narrate/internal/srt"
	"github.com/alnah/go-narrate/internal/storage"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes.
const (
	ExitOK         = 0
	ExitGeneral    = 1
	ExitUsage      = 2
	ExitSetup      = 3
	ExitValidation = 4
	ExitAPI        = 5
	ExitInterrupt  = interrupt.ExitInterrupt
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	// First Ctrl+C cancels ctx so serve and worker drain; a second forces exit.
	handler, ctx := interrupt.NewHandler(context.Background())

	rootCmd := newRootCmd(cli.DefaultEnv())

	err := rootCmd.ExecuteContext(ctx)
	handler.Stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// newRootCmd wires every subcommand onto the narrate root.
func newRootCmd(env *cli.Env) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "narrate",
		Short:   "Generate narration audio and subtitles",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		// Silence Cobra's default error/usage printing; we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.AddCommand(cli.SRTCmd(env))
	rootCmd.AddCommand(cli.GenerateCmd(env))
	rootCmd.AddCommand(cli.RunCmd(env))
	rootCmd.AddCommand(cli.ServeCmd(env))
	rootCmd.AddCommand(cli.WorkerCmd(env))
	rootCmd.AddCommand(cli.HistoryCmd(env))
	rootCmd.AddCommand(cli.ConfigCmd(env))

	return rootCmd
}

// exitCode maps errors to process exit codes.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	if errors.Is(err, context.Canceled) {
		return ExitInterrupt
	}

	if isCobraUsageError(err) {
		return ExitUsage
	}

	if errors.Is(err, cli.ErrAPIKeyMissing) || errors.Is(err, cli.ErrInvalidLogFormat) ||
		errors.Is(err, cli.ErrNoHistory) || errors.Is(err, storage.ErrInvalidKey) {
		return ExitSetup
	}

	if errors.Is(err, cli.ErrFileNotFound) || errors.Is(err, cli.ErrUnsupportedFormat) ||
		errors.Is(err, cli.ErrOutputExists) || errors.Is(err, cli.ErrOutputWithManyInputs) ||
		errors.Is(err, cli.ErrDuplicateOutput) ||
		errors.Is(err, lang.ErrInvalid) || errors.Is(err, srt.ErrInvalidOptions) ||
		errors.Is(err, job.ErrInvalidRequest) || errors.Is(err, speech.ErrInvalidVoice) ||
		errors.Is(err, speech.ErrInvalidSpeed) ||
		errors.Is(err, config.ErrUnknownKey) {
		return ExitValidation
	}

	if errors.Is(err, apierr.ErrRateLimit) || errors.Is(err, apierr.ErrQuotaExceeded) ||
		errors.Is(err, apierr.ErrTimeout) || errors.Is(err, apierr.ErrAuthFailed) {
		return ExitAPI
	}

	return ExitGeneral
}

// cobraUsageErrorPatterns are message fragments of Cobra's untyped parse errors.
var cobraUsageErrorPatterns = []string{
	"required flag",
	"unknown flag",
	"unknown shorthand",
	"unknown command",
	"flag needs an argument",
	"invalid argument",
	"accepts ",
	"requires at least",
	"requires at most",
}

func isCobraUsageError(err error) bool {
	msg := err.Error()
	for _, pattern := range cobraUsageErrorPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
