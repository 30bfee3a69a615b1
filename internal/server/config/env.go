package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment variable, e.g. CM_SECRET_KEY.
const EnvPrefix = "cm"

// parseEnv overlays CM_* variables. Unset variables leave fields untouched.
func parseEnv(cfg *Config) error {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return fmt.Errorf("error processing environment: %w", err)
	}
	return nil
}
