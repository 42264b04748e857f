package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/gofrs/flock"

	"github.com/alnah/go-narrate/internal/srt"
)

// Config keys.
const (
	KeyOutputDir   = "output-dir"
	KeyVoice       = "voice"
	KeyLanguage    = "language"
	KeyMaxChars    = "max-chars"
	KeyStartPad    = "start-pad"
	KeyEndPad      = "end-pad"
	KeyMinDuration = "min-duration"
	KeyStoreRoot   = "store-root"
	KeyBucket      = "bucket"
)

// Environment variable fallbacks.
const (
	EnvOutputDir   = "NARRATE_OUTPUT_DIR"
	EnvVoice       = "NARRATE_VOICE"
	EnvLanguage    = "NARRATE_LANGUAGE"
	EnvMaxChars    = "NARRATE_MAX_CHARS"
	EnvStartPad    = "NARRATE_START_PAD"
	EnvEndPad      = "NARRATE_END_PAD"
	EnvMinDuration = "NARRATE_MIN_DURATION"
	EnvStoreRoot   = "NARRATE_STORE_ROOT"
	EnvBucket      = "NARRATE_BUCKET"
)

// ErrUnknownKey indicates a key outside Keys().
var ErrUnknownKey = errors.New("unknown config key")

// envByKey pairs each key with its environment fallback, in display order.
var envByKey = []struct{ key, env string }{
	{KeyOutputDir, EnvOutputDir},
	{KeyVoice, EnvVoice},
	{KeyLanguage, EnvLanguage},
	{KeyMaxChars, EnvMaxChars},
	{KeyStartPad, EnvStartPad},
	{KeyEndPad, EnvEndPad},
	{KeyMinDuration, EnvMinDuration},
	{KeyStoreRoot, EnvStoreRoot},
	{KeyBucket, EnvBucket},
}

// Keys returns the supported config keys in display order.
func Keys() []string {
	keys := make([]string, len(envByKey))
	for i, e := range envByKey {
		keys[i] = e.key
	}
	return keys
}

// IsKey reports whether key is a supported config key.
func IsKey(key string) bool {
	return slices.Contains(Keys(), key)
}

// EnvFor returns the environment variable backing key, or "".
func EnvFor(key string) string {
	for _, e := range envByKey {
		if e.key == key {
			return e.env
		}
	}
	return ""
}

// Config holds user configuration loaded from ~/.config/go-narrate/config.
// Values are kept as written; typed accessors parse them on demand.
type Config struct {
	OutputDir   string
	Voice       string
	Language    string
	MaxChars    string
	StartPad    string
	EndPad      string
	MinDuration string
	StoreRoot   string
	Bucket      string
}

// field returns a pointer to the Config field for key.
func (c *Config) field(key string) *string {
	switch key {
	case KeyOutputDir:
		return &c.OutputDir
	case KeyVoice:
		return &c.Voice
	case KeyLanguage:
		return &c.Language
	case KeyMaxChars:
		return &c.MaxChars
	case KeyStartPad:
		return &c.StartPad
	case KeyEndPad:
		return &c.EndPad
	case KeyMinDuration:
		return &c.MinDuration
	case KeyStoreRoot:
		return &c.StoreRoot
	case KeyBucket:
		return &c.Bucket
	}
	return nil
}

// Set assigns value to the field named by key.
func (c *Config) Set(key, value string) error {
	f := c.field(key)
	if f == nil {
		return fmt.Errorf("%q: %w", key, ErrUnknownKey)
	}
	*f = value
	return nil
}

// SRTOptions parses the timing keys over srt.DefaultOptions.
// Unset keys keep their defaults; the result is validated.
func (c Config) SRTOptions() (srt.Options, error) {
	opts := srt.DefaultOptions()

	floats := []struct {
		key string
		raw string
		dst *float64
	}{
		{KeyStartPad, c.StartPad, &opts.StartPad},
		{KeyEndPad, c.EndPad, &opts.EndPad},
		{KeyMinDuration, c.MinDuration, &opts.MinDuration},
	}
	for _, f := range floats {
		if f.raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(f.raw, 64)
		if err != nil {
			return srt.Options{}, fmt.Errorf("%s %q: %w", f.key, f.raw, srt.ErrInvalidOptions)
		}
		*f.dst = v
	}

	if c.MaxChars != "" {
		n, err := strconv.Atoi(c.MaxChars)
		if err != nil {
			return srt.Options{}, fmt.Errorf("%s %q: %w", KeyMaxChars, c.MaxChars, srt.ErrInvalidOptions)
		}
		opts.MaxChars = n
	}

	if err := opts.Validate(); err != nil {
		return srt.Options{}, err
	}
	return opts, nil
}

// dir returns the configuration directory path.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config/go-narrate.
func dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "go-narrate"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "go-narrate"), nil
}

// path returns the full path to the config file.
func path() (string, error) {
	d, err := dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "config"), nil
}

// Load reads the configuration file and environment variables.
// Config file values win; environment variables fill the gaps.
// A missing file is not an error.
func Load() (Config, error) {
	return LoadWith(os.Getenv)
}

// LoadWith is Load with an injectable environment lookup.
func LoadWith(getenv func(string) string) (Config, error) {
	var cfg Config

	p, err := path()
	if err != nil {
		return cfg, err
	}

	data, err := parseFile(p)
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	for _, e := range envByKey {
		f := cfg.field(e.key)
		*f = data[e.key]
		if *f == "" {
			*f = getenv(e.env)
		}
	}

	return cfg, nil
}

// parseFile reads a key=value config file.
// Format: one key=value per line, # comments, empty lines ignored.
func parseFile(p string) (map[string]string, error) {
	f, err := os.Open(p) // #nosec G304 -- config path is constructed from home dir
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	data := make(map[string]string)
	scanner := bufio.NewScanner(f)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("invalid syntax at line %d: %q", lineNum, line)
		}
		data[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return data, nil
}

// Save writes a single key=value to the config file.
// Creates the config directory and file if they don't exist.
// Preserves existing key=value pairs but discards comments.
// Concurrent writers are serialized with a lock file next to the config.
func Save(key, value string) error {
	if !IsKey(key) {
		return fmt.Errorf("%q: %w", key, ErrUnknownKey)
	}

	p, err := path()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(p), 0750); err != nil { // #nosec G301 -- user config dir
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	lock := flock.New(p + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("acquire config lock: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	existing, _ := parseFile(p)
	if existing == nil {
		existing = make(map[string]string)
	}
	existing[key] = value

	return writeFile(p, existing)
}

// writeFile writes the config map to a file, keys sorted.
func writeFile(p string, data map[string]string) error {
	// #nosec G302 G304 -- config file with standard permissions, path from home dir
	f, err := os.OpenFile(p, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("cannot write config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		if _, err := fmt.Fprintf(f, "%s=%s\n", k, data[k]); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	return nil
}

// Get reads a single value from the config file.
// Returns empty string if the key doesn't exist.
func Get(key string) (string, error) {
	p, err := path()
	if err != nil {
		return "", err
	}

	data, err := parseFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	return data[key], nil
}

// List returns all config file values as a map.
func List() (map[string]string, error) {
	p, err := path()
	if err != nil {
		return nil, err
	}

	data, err := parseFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}

	return data, nil
}

// ResolveOutputPath resolves the final output path using the following precedence:
//  1. If output is absolute, use it as-is
//  2. If output is relative and outputDir is set, join them
//  3. If output is empty, use defaultName in outputDir (or cwd if no outputDir)
func ResolveOutputPath(output, outputDir, defaultName string) string {
	if output != "" && filepath.IsAbs(output) {
		return filepath.Clean(output)
	}

	if output != "" {
		if outputDir != "" {
			return filepath.Clean(filepath.Join(outputDir, output))
		}
		return filepath.Clean(output)
	}

	if outputDir != "" {
		return filepath.Clean(filepath.Join(outputDir, defaultName))
	}
	return filepath.Clean(defaultName)
}

// EnsureDir checks that d is a writable directory, creating it if needed.
func EnsureDir(d string) error {
	if d == "" {
		return errors.New("directory cannot be empty")
	}
	d = ExpandPath(d)

	info, err := os.Stat(d)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(d, 0750); err != nil { // #nosec G301 -- user output dir
				return fmt.Errorf("cannot create directory: %w", err)
			}
			return nil
		}
		return fmt.Errorf("cannot access directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", d)
	}

	testFile := filepath.Join(d, ".go-narrate-write-test")
	f, err := os.Create(testFile) // #nosec G304 -- path is constructed from validated dir
	if err != nil {
		return fmt.Errorf("directory is not writable: %w", err)
	}
	_ = f.Close()
	_ = os.Remove(testFile)

	return nil
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(p string) string {
	if strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, p[2:])
	}
	return p
}

// Dir returns the configuration directory path.
func Dir() (string, error) {
	return dir()
}
