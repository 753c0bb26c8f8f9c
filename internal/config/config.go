// Package config loads deployment configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is the full deployment configuration. The administrator
// credential lives here, never in the credential store's durable state.
type Config struct {
	AdminEmail    string `env:"ADMIN_EMAIL,required,notEmpty"`
	AdminPassword string `env:"ADMIN_PASSWORD,required,notEmpty"`

	DataDir        string `env:"DATA_DIR" envDefault:"./data"`
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"jsonfile"`
	ListenAddr     string `env:"LISTEN_ADDR" envDefault:":8080"`
	TemplateDir    string `env:"TEMPLATE_DIR" envDefault:"./web/templates"`
	StaticDir      string `env:"STATIC_DIR" envDefault:"./web/static"`

	// SessionFile enables session persistence across restarts when set.
	// Empty keeps the session in memory only.
	SessionFile string `env:"SESSION_FILE"`
}

// Parse loads configuration from environment variables.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.StorageBackend != "jsonfile" && cfg.StorageBackend != "sqlite" {
		return Config{}, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
	}
	return cfg, nil
}
