// Package config loads the htnc configuration file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file read when none is given.
const DefaultPath = "htnc.yaml"

// Config holds the settings shared by the htnc subcommands. Command-line
// flags override values read from the file.
type Config struct {
	OutputDir    string  `yaml:"output_dir"`
	Package      string  `yaml:"package"`
	DomainImport string  `yaml:"domain_import"`
	LogLevel     string  `yaml:"log_level"`
	MetricsAddr  string  `yaml:"metrics_addr"`
	Planner      Planner `yaml:"planner"`
}

// Planner configures the search driver.
type Planner struct {
	MaxDepth      int  `yaml:"max_depth"`
	MaxStackBytes int  `yaml:"max_stack_bytes"`
	AllPlans      bool `yaml:"all_plans"`
	PlanLimit     int  `yaml:"plan_limit"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		OutputDir: ".",
		LogLevel:  "info",
		Planner: Planner{
			MaxDepth:      10000,
			MaxStackBytes: 512 << 20,
			PlanLimit:     1,
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults
// unless required is set.
func Load(path string, required bool) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Planner.MaxDepth < 0 {
		return fmt.Errorf("planner.max_depth must not be negative, got %d", c.Planner.MaxDepth)
	}
	if c.Planner.MaxStackBytes < 0 {
		return fmt.Errorf("planner.max_stack_bytes must not be negative, got %d", c.Planner.MaxStackBytes)
	}
	if c.Planner.PlanLimit < 0 {
		return fmt.Errorf("planner.plan_limit must not be negative, got %d", c.Planner.PlanLimit)
	}
	return nil
}
