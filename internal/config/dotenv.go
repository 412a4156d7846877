package config

import (
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv reads variables from a .env file into the process environment.
// An empty path means ".env" in the working directory, and a missing file is
// not an error. Variables already set in the environment are left alone.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

// MustLoadDotEnv is LoadDotEnv for callers that passed an explicit file:
// a missing file is reported instead of skipped.
func MustLoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	return godotenv.Load(path)
}

// LoadConfig builds the application config from an optional .env file plus
// the process environment. Variables are read with the MURMUR_ prefix and
// fall back to the bare name, so both MURMUR_OPENAI_API_KEY and
// OPENAI_API_KEY work.
func LoadConfig(envPath string) (AppConfig, error) {
	if err := LoadDotEnv(envPath); err != nil {
		return AppConfig{}, err
	}

	envCfg, err := LoadFromEnvWithPrefix("MURMUR")
	if err != nil {
		return AppConfig{}, err
	}

	return envCfg.Normalize().ToAppConfig(), nil
}
