package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvAPIURL overrides api.base_url when set.
const EnvAPIURL = "TABLERO_API_URL"

// Delete modes decide what the board does after a successful delete.
const (
	DeleteModeReload = "reload" // Re-fetch the whole board.
	DeleteModeLocal  = "local"  // Drop the card from the rendered board only.
)

// Config is the root configuration for a tablero workspace.
type Config struct {
	Version               int      `yaml:"version"`
	API                   API      `yaml:"api"`
	Statuses              []Status `yaml:"statuses"`
	InteractiveCorrection *bool    `yaml:"interactive_correction,omitempty"` // Ask for the backend enum when the server rejects one (default true)
	DeleteMode            string   `yaml:"delete_mode,omitempty"`            // "reload" or "local"
}

// API describes how to reach the remote task service.
type API struct {
	BaseURL    string `yaml:"base_url"`
	TimeoutSec int    `yaml:"timeout_sec,omitempty"` // 0 = default 15
}

// Status binds one board column label to the enum value the backend expects.
type Status struct {
	Label   string `yaml:"label"`
	Backend string `yaml:"backend"`
}

// DefaultStatuses is the column table used when none is configured.
func DefaultStatuses() []Status {
	return []Status{
		{Label: "Por hacer", Backend: "Por hacer"},
		{Label: "En progreso", Backend: "Haciendo"},
		{Label: "Completada", Backend: "Hecho"},
	}
}

// DefaultConfig returns a starter config pointing at a local API.
func DefaultConfig() *Config {
	return &Config{
		Version:  1,
		API:      API{BaseURL: "http://localhost:3000", TimeoutSec: 15},
		Statuses: DefaultStatuses(),
	}
}

// Load reads and parses the config file at the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if len(cfg.Statuses) == 0 {
		cfg.Statuses = DefaultStatuses()
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the config to the given path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// BaseURL returns the API base URL without a trailing slash.
// TABLERO_API_URL wins over the file.
func (c *Config) BaseURL() string {
	base := c.API.BaseURL
	if v := os.Getenv(EnvAPIURL); v != "" {
		base = v
	}
	if base == "" {
		base = "http://localhost:3000"
	}
	return strings.TrimRight(base, "/")
}

// Timeout returns the effective HTTP timeout in seconds.
func (c *Config) Timeout() int {
	if c.API.TimeoutSec > 0 {
		return c.API.TimeoutSec
	}
	return 15
}

// CorrectionEnabled reports whether rejected enums may be corrected interactively.
func (c *Config) CorrectionEnabled() bool {
	if c.InteractiveCorrection == nil {
		return true
	}
	return *c.InteractiveCorrection
}

// EffectiveDeleteMode returns the delete mode, defaulting to reload.
func (c *Config) EffectiveDeleteMode() string {
	if c.DeleteMode == "" {
		return DeleteModeReload
	}
	return c.DeleteMode
}

// StatusTable returns the label -> backend defaults in column order.
func (c *Config) StatusTable() ([]string, map[string]string) {
	labels := make([]string, 0, len(c.Statuses))
	table := make(map[string]string, len(c.Statuses))
	for _, s := range c.Statuses {
		labels = append(labels, s.Label)
		table[s.Label] = s.Backend
	}
	return labels, table
}

func (c *Config) validate() error {
	if len(c.Statuses) != 3 {
		return fmt.Errorf("statuses: expected exactly 3 columns, got %d", len(c.Statuses))
	}
	labels := map[string]bool{}
	backends := map[string]bool{}
	for i, s := range c.Statuses {
		if strings.TrimSpace(s.Label) == "" {
			return fmt.Errorf("statuses[%d]: label is required", i)
		}
		if strings.TrimSpace(s.Backend) == "" {
			return fmt.Errorf("status %q: backend is required", s.Label)
		}
		if labels[s.Label] {
			return fmt.Errorf("status %q: duplicate label", s.Label)
		}
		if backends[s.Backend] {
			return fmt.Errorf("status %q: backend %q already used", s.Label, s.Backend)
		}
		labels[s.Label] = true
		backends[s.Backend] = true
	}
	switch c.DeleteMode {
	case "", DeleteModeReload, DeleteModeLocal:
	default:
		return fmt.Errorf("delete_mode must be 'reload' or 'local', got %q", c.DeleteMode)
	}
	if c.API.TimeoutSec < 0 {
		return fmt.Errorf("api.timeout_sec must not be negative")
	}
	return nil
}
