package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Deployment environments.
const (
	EnvStaging    = "stag"
	EnvProduction = "prod"

	// DefaultEnvironment is used when nothing identifies the environment.
	DefaultEnvironment = EnvStaging
)

var (
	// ErrUnknownEnvironment indicates a name other than stag or prod.
	ErrUnknownEnvironment = errors.New("unknown environment")

	// ErrEnvFileNotFound indicates the <name>.env file is missing.
	ErrEnvFileNotFound = errors.New("environment file not found")

	// ErrEmptyEnvironment indicates an environment file with no variables.
	ErrEmptyEnvironment = errors.New("environment file defines no variables")
)

// ClassifyEnv maps any string mentioning prod or stag (a level, a bucket
// name) to that environment. Everything else is staging.
func ClassifyEnv(value string) string {
	v := strings.ToLower(value)
	switch {
	case strings.Contains(v, EnvProduction):
		return EnvProduction
	case strings.Contains(v, EnvStaging):
		return EnvStaging
	default:
		return DefaultEnvironment
	}
}

// LoadEnvironment reads <dir>/<name>.env and returns its variables.
// The process environment is left untouched.
func LoadEnvironment(name, dir string) (map[string]string, error) {
	if name != EnvStaging && name != EnvProduction {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownEnvironment)
	}

	p := filepath.Join(dir, name+".env")
	vars, err := godotenv.Read(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", p, ErrEnvFileNotFound)
		}
		return nil, fmt.Errorf("cannot read %s: %w", p, err)
	}
	if len(vars) == 0 {
		return nil, fmt.Errorf("%s: %w", p, ErrEmptyEnvironment)
	}
	return vars, nil
}
