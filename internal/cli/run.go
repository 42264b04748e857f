package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/alnah/go-narrate/internal/job"
)

// RunCmd creates the run command.
// The env parameter provides injectable dependencies for testing.
func RunCmd(env *Env) *cobra.Command {
	var (
		eventPath string
		flags     runnerFlags
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a job event file",
		Long: `Run a job event and print its result as JSON.

The event is YAML, JSON or TOML (.toml), either {"input": {...}} or the
request alone:

  input:
    prompts: ["Welcome back.", "Today we cover loops."]
    generate_srt: true
    level: stag

The environment (stag or prod) is read from <env-dir>/<level>.env; its
NARRATE_BUCKET selects the output bucket. A failed job prints
{"error": "..."} and exits non-zero.`,
		Example: `  narrate run --event event.yaml
  narrate run --event event.json --env-dir /etc/narrate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readEvent(eventPath)
			if err != nil {
				return err
			}

			built, err := buildRunner(env, runnerSetup{source: "run", flags: flags, withSRT: req.GenerateSRT, withEnvDir: true})
			if err != nil {
				return err
			}
			defer func() { _ = built.Close() }()

			res := built.runner.Run(cmd.Context(), req)
			if err := writeResultJSON(env.Stdout, res); err != nil {
				return err
			}
			if res.Failed() {
				return fmt.Errorf("%w: %s", ErrJobFailed, res.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&eventPath, "event", "e", "", "Job event file (YAML, JSON or TOML)")
	flags.register(cmd.Flags(), true)
	_ = cmd.MarkFlagRequired("event")

	return cmd
}

// readEvent decodes an event file. Files ending in .toml are TOML; the rest
// go through the YAML decoder, which also reads JSON.
func readEvent(path string) (job.Request, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-specified event file
	if err != nil {
		if os.IsNotExist(err) {
			return job.Request{}, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return job.Request{}, fmt.Errorf("cannot read event: %w", err)
	}

	unmarshal := yaml.Unmarshal
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		unmarshal = toml.Unmarshal
	}

	var ev job.Event
	if err := unmarshal(data, &ev); err != nil {
		return job.Request{}, fmt.Errorf("decode event %s: %w: %w", path, job.ErrInvalidRequest, err)
	}
	if ev.Input != nil {
		return *ev.Input, nil
	}

	var req job.Request
	if err := unmarshal(data, &req); err != nil {
		return job.Request{}, fmt.Errorf("decode request %s: %w: %w", path, job.ErrInvalidRequest, err)
	}
	return req, nil
}
