package config

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// EnvLoader loads a .env file named by the --env flag before Load reads the environment.
type EnvLoader struct {
	value       *string
	defaultPath string
}

// AddEnvFlag registers an --env flag and returns an EnvLoader.
func AddEnvFlag(fs *flag.FlagSet, defaultPath string) *EnvLoader {
	if fs == nil {
		fs = flag.CommandLine
	}
	if defaultPath == "" {
		defaultPath = ".env"
	}
	return &EnvLoader{
		value:       fs.String("env", defaultPath, "Path to the .env file"),
		defaultPath: defaultPath,
	}
}

// Load applies the requested file, then SPEECH_ENV_FILE if set. A missing default
// file is not an error; a missing explicitly requested file is.
func (l *EnvLoader) Load() (string, error) {
	if l == nil {
		return "", fmt.Errorf("env loader is nil")
	}

	if custom := strings.TrimSpace(os.Getenv("SPEECH_ENV_FILE")); custom != "" {
		if err := godotenv.Load(custom); err != nil {
			return "", fmt.Errorf("load SPEECH_ENV_FILE=%s: %w", custom, err)
		}
		return custom, nil
	}

	requested := l.defaultPath
	if l.value != nil && strings.TrimSpace(*l.value) != "" {
		requested = strings.TrimSpace(*l.value)
	}

	if err := godotenv.Load(requested); err != nil {
		if requested == l.defaultPath && os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("load env file %s: %w", requested, err)
	}
	return requested, nil
}
