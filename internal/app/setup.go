package app

import (
	"errors"
	"fmt"
	"io/fs"

	"heartrate-go/internal/config"

	"github.com/joho/godotenv"
)

// DefaultEnvFile is read by LoadConfig when no env file is named. Its
// absence is not an error.
const DefaultEnvFile = ".env"

// LoadConfig loads envFile into the process environment, without overriding
// variables that are already set, and then builds the configuration from
// configPath and the environment.
func LoadConfig(envFile, configPath string) (*config.Config, error) {
	optional := envFile == ""
	if optional {
		envFile = DefaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil {
		if !optional || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: loading %s: %w", config.ErrConfiguration, envFile, err)
		}
	}
	return config.Load(configPath)
}
