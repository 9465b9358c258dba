package accesskit

import (
	"github.com/kelseyhightower/envconfig"
)

// Config holds the environment-driven store settings.
type Config struct {
	// DatabaseURL is the PostgreSQL connection string.
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// PageLimit bounds listing page sizes when the caller passes none.
	// OpenSQLStore and NewMemStoreWithConfig apply it as the fallback.
	PageLimit int `envconfig:"PAGE_LIMIT" default:"100"`
}

// ConfigFromEnv reads configuration from ACCESSKIT_* environment variables,
// e.g. ACCESSKIT_DATABASE_URL.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("accesskit", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
