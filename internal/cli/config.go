package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alnah/go-narrate/internal/config"
	"github.com/alnah/go-narrate/internal/lang"
	"github.com/alnah/go-narrate/internal/speech"
)

// ConfigCmd creates the config command with subcommands.
// The env parameter provides injectable dependencies for testing.
func ConfigCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long: `Manage persistent configuration settings.

Configuration is stored in ~/.config/go-narrate/config.
Settings can also be overridden via environment variables.

Supported settings:
` + keyHelp(),
		Example: `  narrate config set voice nova
  narrate config set max-chars 42
  narrate config get voice
  narrate config list`,
	}

	cmd.AddCommand(configSetCmd(env))
	cmd.AddCommand(configGetCmd(env))
	cmd.AddCommand(configListCmd(env))

	return cmd
}

// keyHelp lists keys with their environment fallbacks.
func keyHelp() string {
	var b strings.Builder
	for _, key := range config.Keys() {
		fmt.Fprintf(&b, "  %-14s (env: %s)\n", key, config.EnvFor(key))
	}
	return strings.TrimRight(b.String(), "\n")
}

func configSetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value.

Directories (output-dir, store-root) are created if they don't exist.
Voices, languages and subtitle timings are validated before saving.`,
		Example: `  narrate config set output-dir ~/narrations
  narrate config set end-pad 0.3`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(env, args[0], args[1])
		},
	}
}

func configGetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Long: `Get a configuration value.

Prints the value to stdout, or nothing if not set.`,
		Example: `  narrate config get voice`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(env, args[0])
		},
	}
}

func configListCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration values",
		Long: `List all configuration values.

Shows both values from the config file and environment variable overrides.`,
		Example: `  narrate config list`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigList(env)
		},
	}
}

// validateConfigValue checks value for key, returning the value to store.
func validateConfigValue(key, value string) (string, error) {
	switch key {
	case config.KeyOutputDir, config.KeyStoreRoot:
		expanded := config.ExpandPath(value)
		if err := config.EnsureDir(expanded); err != nil {
			return "", fmt.Errorf("invalid %s: %w", key, err)
		}
		return expanded, nil
	case config.KeyVoice:
		return value, speech.ValidateVoice(value)
	case config.KeyLanguage:
		return value, lang.Validate(value)
	case config.KeyMaxChars, config.KeyStartPad, config.KeyEndPad, config.KeyMinDuration:
		var candidate config.Config
		if err := candidate.Set(key, value); err != nil {
			return "", err
		}
		_, err := candidate.SRTOptions()
		return value, err
	}
	return value, nil
}

func runConfigSet(env *Env, key, value string) error {
	if !config.IsKey(key) {
		return fmt.Errorf("unknown config key %q (valid keys: %v): %w", key, config.Keys(), config.ErrUnknownKey)
	}

	value, err := validateConfigValue(key, value)
	if err != nil {
		return err
	}

	if err := config.Save(key, value); err != nil {
		return err
	}

	fmt.Fprintf(env.Stderr, "Set %s = %s\n", key, value)
	return nil
}

func runConfigGet(env *Env, key string) error {
	if !config.IsKey(key) {
		return fmt.Errorf("unknown config key %q (valid keys: %v): %w", key, config.Keys(), config.ErrUnknownKey)
	}

	value, err := config.Get(key)
	if err != nil {
		return err
	}
	if value == "" {
		value = env.Getenv(config.EnvFor(key))
	}

	if value != "" {
		fmt.Fprintln(env.Stdout, value)
	}
	return nil
}

func runConfigList(env *Env) error {
	data, err := config.List()
	if err != nil {
		return err
	}

	printed := 0
	for _, key := range config.Keys() {
		if v, ok := data[key]; ok {
			fmt.Fprintf(env.Stdout, "%s=%s\n", key, v)
			printed++
			continue
		}
		if v := env.Getenv(config.EnvFor(key)); v != "" {
			fmt.Fprintf(env.Stdout, "%s=%s (from env)\n", key, v)
			printed++
		}
	}

	if printed == 0 {
		fmt.Fprintln(env.Stdout, "No configuration set.")
		fmt.Fprintln(env.Stdout, "\nAvailable settings:")
		fmt.Fprintln(env.Stdout, keyHelp())
	}
	return nil
}
