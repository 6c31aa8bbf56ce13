package internal

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/reeler/reeler/internal/api"
	"github.com/reeler/reeler/internal/database"
	"github.com/reeler/reeler/internal/extract"
	"github.com/reeler/reeler/internal/history"
	"github.com/reeler/reeler/internal/limiter"
)

// ReelerConfig is the top-level user configuration, typically
// populated from the environment. A TOML file can be supplied
// instead, in which case the environment still takes precedence.
type ReelerConfig struct {
	API       api.RestConfig  `toml:"api"`
	Database  database.Config `toml:"database"`
	Extractor extract.Config  `toml:"extractor"`
	Limiter   limiter.Config  `toml:"rate_limiter"`
	History   history.Config  `toml:"history"`
}

// LoadFromFile loads a TOML configuration file in to a ReelerConfig,
// applying environment variable overrides on top.
func (config *ReelerConfig) LoadFromFile(configPath string) error {
	if err := cleanenv.ReadConfig(configPath, config); err != nil {
		return fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
	}

	return nil
}

// LoadFromEnv populates the configuration from the environment alone.
func (config *ReelerConfig) LoadFromEnv() error {
	if err := cleanenv.ReadEnv(config); err != nil {
		return fmt.Errorf("failed to load configuration from environment: %w", err)
	}

	return nil
}
