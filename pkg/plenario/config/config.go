// Package config loads the monitor's YAML configuration and the
// pipe-delimited taxonomy definition file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/civimetrics/plenario/pkg/plenario/internalerr"
	"github.com/civimetrics/plenario/pkg/plenario/store"
)

// Config is the full monitor configuration.
type Config struct {
	// Taxonomy is the path to the Client|Theme|Keywords definition file.
	Taxonomy string `yaml:"taxonomy"`

	Store     StoreConfig     `yaml:"store"`
	Targets   TargetsConfig   `yaml:"targets"`
	Providers ProvidersConfig `yaml:"providers"`
	Align     AlignConfig     `yaml:"align"`

	// Orgs maps a taxonomy client name to its organization profile used by
	// the alignment classifier.
	Orgs map[string]Org `yaml:"orgs"`
}

// StoreConfig locates the grid database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// TargetsConfig names the general per-chamber targets and fixes the
// insertion mode per target group. Modes must stay stable for a target
// across runs, so they live in configuration rather than per call.
type TargetsConfig struct {
	Senado       string `yaml:"senado"`
	Camara       string `yaml:"camara"`
	Insert       string `yaml:"insert"`        // top | bottom
	ClientInsert string `yaml:"client_insert"` // top | bottom
}

// ProvidersConfig tunes the upstream API clients.
type ProvidersConfig struct {
	CamaraBaseURL  string  `yaml:"camara_base_url"`
	SenadoBaseURL  string  `yaml:"senado_base_url"`
	RatePerSecond  float64 `yaml:"rate_per_second"`
	Burst          int     `yaml:"burst"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

// AlignConfig tunes the alignment classification batch pass.
type AlignConfig struct {
	Provider    string   `yaml:"provider"` // "openai" or "" (disabled)
	Model       string   `yaml:"model"`
	BatchSize   int      `yaml:"batch_size"`
	SleepSec    float64  `yaml:"sleep_sec"`
	SkipTargets []string `yaml:"skip_targets"`
}

// Org is one client organization: display name plus the mission description
// fed to the classifier prompt.
type Org struct {
	Name    string `yaml:"name"`
	Mission string `yaml:"mission"`
}

// Load reads and validates a YAML config file, applying defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}
	cfg.applyDefaults()
	if _, err := ParsePosition(cfg.Targets.Insert); err != nil {
		return nil, err
	}
	if _, err := ParsePosition(cfg.Targets.ClientInsert); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Targets.Senado == "" {
		c.Targets.Senado = "Senado"
	}
	if c.Targets.Camara == "" {
		c.Targets.Camara = "Camara"
	}
	if c.Targets.Insert == "" {
		c.Targets.Insert = "top"
	}
	if c.Targets.ClientInsert == "" {
		c.Targets.ClientInsert = "top"
	}
	if c.Providers.RatePerSecond <= 0 {
		c.Providers.RatePerSecond = 2
	}
	if c.Providers.Burst <= 0 {
		c.Providers.Burst = 5
	}
	if c.Providers.TimeoutSeconds <= 0 {
		c.Providers.TimeoutSeconds = 60
	}
	if c.Align.BatchSize <= 0 {
		c.Align.BatchSize = 20
	}
}

// ParsePosition converts a config insertion mode to a store.Position.
// Empty means top.
func ParsePosition(s string) (store.Position, error) {
	switch s {
	case "", "top":
		return store.Top, nil
	case "bottom":
		return store.Bottom, nil
	}
	return store.Top, fmt.Errorf("%w: insert mode %q (want top or bottom)", internalerr.ErrInvalidConfig, s)
}

// LoadTaxonomy reads the taxonomy definition text from a file.
func LoadTaxonomy(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
