package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvConfig holds settings that are usually injected rather than written
// to the config file. Empty values leave the file and flag values alone.
type EnvConfig struct {
	APIURL    string `env:"SIGNTUTOR_API_URL"`
	DetectURL string `env:"SIGNTUTOR_DETECT_URL"`
	Token     string `env:"SIGNTUTOR_TOKEN"`
	UserID    string `env:"SIGNTUTOR_USER_ID"`
	LogLevel  string `env:"SIGNTUTOR_LOG_LEVEL" envDefault:"info"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadEnv parses EnvConfig from the process environment.
func LoadEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := ParseEnv(&cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}
