package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultBackendURL = "http://localhost:8000/api"
	defaultTimeout    = 15 * time.Second
)

// Config holds the client settings. Precedence: flags (applied by the CLI) >
// environment > config file > defaults.
type Config struct {
	// BackendURL is the base URL of the PDF-chat backend.
	BackendURL string
	// RequestTimeout is the deadline attached to every backend call.
	RequestTimeout time.Duration
	// StateDir is where the session identifier lives; empty means the
	// platform's user config dir.
	StateDir string
}

// fileConfig is the on-disk YAML shape; durations are written as strings
// ("15s", "1m").
type fileConfig struct {
	BackendURL     string `yaml:"backend_url"`
	RequestTimeout string `yaml:"request_timeout"`
	StateDir       string `yaml:"state_dir"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		BackendURL:     defaultBackendURL,
		RequestTimeout: defaultTimeout,
	}
}

// Load reads the config file at path, falling back to defaults when the file
// is absent, then applies environment overrides (PDFCHAT_BACKEND_URL,
// PDFCHAT_REQUEST_TIMEOUT, PDFCHAT_STATE_DIR).
func Load(path string) (Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// fine, defaults apply
		case err != nil:
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		default:
			var fc fileConfig
			if err := yaml.Unmarshal(raw, &fc); err != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
			}
			if fc.BackendURL != "" {
				cfg.BackendURL = fc.BackendURL
			}
			if fc.RequestTimeout != "" {
				d, err := time.ParseDuration(fc.RequestTimeout)
				if err != nil {
					return Config{}, fmt.Errorf("config: parse request_timeout: %w", err)
				}
				cfg.RequestTimeout = d
			}
			if fc.StateDir != "" {
				cfg.StateDir = fc.StateDir
			}
		}
	}

	if v := os.Getenv("PDFCHAT_BACKEND_URL"); v != "" {
		cfg.BackendURL = v
	}
	if v := os.Getenv("PDFCHAT_REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: parse PDFCHAT_REQUEST_TIMEOUT: %w", err)
		}
		cfg.RequestTimeout = d
	}
	if v := os.Getenv("PDFCHAT_STATE_DIR"); v != "" {
		cfg.StateDir = v
	}

	if strings.TrimSpace(cfg.BackendURL) == "" {
		cfg.BackendURL = defaultBackendURL
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultTimeout
	}
	return cfg, nil
}
