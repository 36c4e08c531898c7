// CLAUDE:SUMMARY Defines domconsole config structs and parses YAML configuration files with defaults.
// Package config handles domconsole configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/domconsole/inspect"
)

// Config is the top-level domconsole configuration.
type Config struct {
	Inspect InspectConfig `yaml:"inspect"`
	Surface SurfaceConfig `yaml:"surface"`
	Server  ServerConfig  `yaml:"server"`
	Journal JournalConfig `yaml:"journal"`
	Sinks   []SinkConfig  `yaml:"sinks"`
}

// InspectConfig controls introspection.
type InspectConfig struct {
	MaxDepth     int    `yaml:"max_depth"`
	DetectCycles *bool  `yaml:"detect_cycles"`
	Holes        string `yaml:"holes"` // empty | skip
}

// SurfaceConfig controls the terminal surface.
type SurfaceConfig struct {
	Color bool `yaml:"color"`
}

// ServerConfig controls the web console.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// JournalConfig controls the SQLite record journal. An empty Path disables it.
type JournalConfig struct {
	Path      string        `yaml:"path"`
	Retention time.Duration `yaml:"retention"`
}

// SinkConfig defines an output backend.
type SinkConfig struct {
	Type    string `yaml:"type"` // stdout | webhook
	URL     string `yaml:"url"`  // for webhook
	Retries int    `yaml:"retries"`
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Inspect.MaxDepth <= 0 {
		c.Inspect.MaxDepth = inspect.DefaultMaxDepth
	}
	if c.Inspect.DetectCycles == nil {
		on := true
		c.Inspect.DetectCycles = &on
	}
	if c.Inspect.Holes == "" {
		c.Inspect.Holes = "empty"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8420"
	}
	if c.Journal.Retention == 0 {
		c.Journal.Retention = 7 * 24 * time.Hour
	}
	for i := range c.Sinks {
		if c.Sinks[i].Type == "webhook" && c.Sinks[i].Retries == 0 {
			c.Sinks[i].Retries = 3
		}
	}
}

func (c *Config) validate() error {
	if c.Inspect.Holes != "empty" && c.Inspect.Holes != "skip" {
		return fmt.Errorf("config: inspect.holes %q: want empty or skip", c.Inspect.Holes)
	}
	for i, s := range c.Sinks {
		switch s.Type {
		case "stdout":
		case "webhook":
			if s.URL == "" {
				return fmt.Errorf("config: sinks[%d]: webhook needs url", i)
			}
		default:
			return fmt.Errorf("config: sinks[%d]: unknown type %q", i, s.Type)
		}
	}
	return nil
}

// InspectOptions converts the inspect section to introspector options.
func (c *Config) InspectOptions() []inspect.Option {
	holes := inspect.HolesEmpty
	if c.Inspect.Holes == "skip" {
		holes = inspect.HolesSkip
	}
	cycles := c.Inspect.DetectCycles == nil || *c.Inspect.DetectCycles
	return []inspect.Option{
		inspect.WithMaxDepth(c.Inspect.MaxDepth),
		inspect.WithCycleDetection(cycles),
		inspect.WithHoles(holes),
	}
}
