package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the cryptodash client.
type Config struct {
	Server  Server   `yaml:"server"`
	State   State    `yaml:"state"`
	Poll    Poll     `yaml:"poll"`
	Chart   Chart    `yaml:"chart"`
	Symbols []string `yaml:"symbols"`
	Logging Logging  `yaml:"logging"`
}

// Server holds the platform API endpoint configuration.
type Server struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// State holds paths for local persistence (the credential store).
type State struct {
	Dir string `yaml:"dir"`
}

// Poll controls refresh cadence for the two recurring views.
type Poll struct {
	DashboardInterval time.Duration `yaml:"dashboard_interval"`
	DetailInterval    time.Duration `yaml:"detail_interval"`
	HistoryLimit      int           `yaml:"history_limit"`
}

// Chart bounds the density of the merged actual/forecast chart.
type Chart struct {
	Window int `yaml:"window"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Default returns the built-in configuration used when no config file exists.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Server: Server{
			BaseURL: "http://localhost:8080",
			Timeout: 30 * time.Second,
		},
		State: State{
			Dir: filepath.Join(home, ".cryptodash"),
		},
		Poll: Poll{
			DashboardInterval: 30 * time.Second,
			DetailInterval:    60 * time.Second,
			HistoryLimit:      100,
		},
		Chart: Chart{
			Window: 20,
		},
		Symbols: []string{"BTCUSDT", "ETHUSDT", "BNBUSDT", "ADAUSDT", "DOGEUSDT"},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML configuration file at the given path, parses it over
// the defaults, and then applies environment variable overrides. A missing
// file is not an error: defaults plus env overrides are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CRYPTODASH_SERVER_URL"); v != "" {
		cfg.Server.BaseURL = v
	}

	if v := os.Getenv("CRYPTODASH_STATE_DIR"); v != "" {
		cfg.State.Dir = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

// CredentialDBPath returns the path of the SQLite credential store.
func (c *Config) CredentialDBPath() string {
	return filepath.Join(c.State.Dir, "credentials.db")
}
