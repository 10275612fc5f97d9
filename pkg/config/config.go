// Package config loads als2hapax settings from the environment
package config

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/caarlos0/env/v11"
)

// Config holds settings shared by the CLI, the API server and the TUI.
// Command-line flags override these values.
type Config struct {
	ServerPort     int    `env:"ALS2HAPAX_PORT"          envDefault:"8080"`
	OutPort        string `env:"ALS2HAPAX_OUTPORT"       envDefault:"USBD"`
	Channel        int    `env:"ALS2HAPAX_CHANNEL"       envDefault:"1"`
	MaxUploadMB    int64  `env:"ALS2HAPAX_MAX_UPLOAD_MB" envDefault:"50"`
	Verbose        bool   `env:"ALS2HAPAX_VERBOSE"`
	SelectionsFile string `env:"ALS2HAPAX_SELECTIONS"`
}

// Load parses the environment into a Config
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// MaxUploadBytes returns the upload limit in bytes
func (c Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// Logger returns the diagnostic logger: stderr when verbose, discarded otherwise
func (c Config) Logger() *log.Logger {
	var out io.Writer = io.Discard
	if c.Verbose {
		out = os.Stderr
	}
	return log.New(out, "als2hapax: ", 0)
}
